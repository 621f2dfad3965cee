package providers

import (
	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook-server/internal/auth"
	"github.com/daybookapp/daybook-server/internal/logger"
	"github.com/daybookapp/daybook-server/internal/media/images"
	"github.com/daybookapp/daybook-server/internal/service"
	"github.com/daybookapp/daybook-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	uploads := do.MustInvoke[*images.Storage](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, uploads, validator, log.Logger), nil
}

// ProvideDiaryService provides the diary entry service.
func ProvideDiaryService(i do.Injector) (*service.DiaryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	uploads := do.MustInvoke[*images.Storage](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDiaryService(storeHandle.Store, uploads, validator, log.Logger), nil
}
