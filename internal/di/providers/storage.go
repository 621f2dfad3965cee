package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook-server/internal/config"
	"github.com/daybookapp/daybook-server/internal/logger"
	"github.com/daybookapp/daybook-server/internal/media/images"
)

// ProvideUploadStorage provides the photo upload storage.
func ProvideUploadStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	uploads, err := images.NewStorage(cfg.UploadsPath())
	if err != nil {
		return nil, fmt.Errorf("upload storage: %w", err)
	}

	log.Info("Upload storage initialized")

	return uploads, nil
}
