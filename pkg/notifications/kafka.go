package notifications

import (
	"context"
	"time"

	"github.com/cloudevents/sdk-go/protocol/kafka_sarama/v2"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/content-services/content-uploads-backend/pkg/api"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/kafka"
	"github.com/content-services/content-uploads-backend/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EventSource     = "urn:redhat:source:console:app:" + config.DefaultAppName
	FileUploadedEvt = "file-uploaded"
)

type FileUploadedPayload struct {
	UUID     string `json:"uuid"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	FileType int    `json:"file_type"`
	MimeType string `json:"mime_type"`
	UploadID string `json:"upload_id,omitempty"`
	OwnerID  string `json:"owner_id"`
}

type kafkaNotifier struct {
	client   cloudevents.Client
	protocol *kafka_sarama.Sender
}

// NewNotifier returns a kafka backed notifier, or a noop one when kafka is not configured
func NewNotifier(cfg config.Kafka) (Notifier, error) {
	brokers := kafka.Brokers(cfg)
	if len(brokers) == 0 {
		log.Warn().Msg("No kafka brokers configured, upload notifications disabled")
		return NewNoopNotifier(), nil
	}

	saramaConfig, err := kafka.NewSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}

	topic := cfg.Topic
	if clowder.IsClowderEnabled() {
		topic = kafka.NewTopicTranslationWithClowder(clowder.LoadedConfig).GetReal(topic)
	}

	protocol, err := kafka_sarama.NewSender(brokers, saramaConfig, topic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create kafka_sarama protocol")
	}

	client, err := cloudevents.NewClient(protocol, cloudevents.WithTimeNow(), cloudevents.WithUUIDs())
	if err != nil {
		_ = protocol.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create cloudevents client")
	}
	return &kafkaNotifier{client: client, protocol: protocol}, nil
}

func newFileUploadedEvent(owner models.Owner, file api.FileResponse) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(EventSource)
	e.SetType("com.redhat.console." + config.DefaultAppName + "." + FileUploadedEvt)
	e.SetSubject("urn:redhat:subject:console:file:" + file.UUID)
	e.SetTime(time.Now())
	e.SetExtension("redhatorgid", owner.OrgID)
	if owner.AccountID != "" {
		e.SetExtension("redhataccount", owner.AccountID)
	}

	err := e.SetData(cloudevents.ApplicationJSON, FileUploadedPayload{
		UUID:     file.UUID,
		FileName: file.FileName,
		FilePath: file.FilePath,
		FileSize: file.FileSize,
		FileType: file.FileType,
		MimeType: file.MimeType,
		UploadID: file.UploadID,
		OwnerID:  owner.ID(),
	})
	if err != nil {
		return e, errors.Wrap(err, "failed to set event data")
	}
	return e, e.Validate()
}

func (n *kafkaNotifier) FileUploaded(ctx context.Context, owner models.Owner, file api.FileResponse) error {
	e, err := newFileUploadedEvent(owner, file)
	if err != nil {
		return err
	}

	result := n.client.Send(cloudevents.WithEncodingStructured(ctx), e)
	if cloudevents.IsUndelivered(result) {
		return errors.Wrapf(result, "notification for file %s was not delivered", file.UUID)
	}
	zerolog.Ctx(ctx).Debug().Str("file_uuid", file.UUID).Msgf("Notification message accepted: %t", cloudevents.IsACK(result))
	return nil
}

func (n *kafkaNotifier) Close(ctx context.Context) error {
	return n.protocol.Close(ctx)
}
