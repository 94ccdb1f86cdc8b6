package notifications

import (
	"context"

	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/models"
)

//go:generate mockery --name Notifier --filename notifier_mock.go --inpackage
type Notifier interface {
	// FileUploaded announces a stored file. Callers log failures, an upload
	// never fails because of a notification.
	FileUploaded(ctx context.Context, owner models.Owner, file api.FileResponse) error
	Close(ctx context.Context) error
}

type noopNotifier struct{}

func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) FileUploaded(ctx context.Context, owner models.Owner, file api.FileResponse) error {
	return nil
}

func (noopNotifier) Close(ctx context.Context) error {
	return nil
}
