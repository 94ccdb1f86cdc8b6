package api

import (
	"os"
	"path/filepath"

	"github.com/content-services/content-uploads-backend/pkg/config"
)

const IdentityHeader = "x-rh-identity"

const ApiVersion = "1.0"
const ApiVersionMajor = "1"

func rootPrefix() string {
	pathPrefix, present := os.LookupEnv("PATH_PREFIX")
	if !present {
		pathPrefix = "api"
	}

	appName, present := os.LookupEnv("APP_NAME")
	if !present {
		appName = config.DefaultAppName
	}
	return filepath.Join("/", pathPrefix, appName)
}

func FullRootPath() string {
	return filepath.Join(rootPrefix(), "v"+ApiVersion)
}

func MajorRootPath() string {
	return filepath.Join(rootPrefix(), "v"+ApiVersionMajor)
}
