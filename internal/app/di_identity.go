package app

import (
	"fmt"

	identityHTTP "github.com/allisson/envie/internal/identity/http"
	identityRepository "github.com/allisson/envie/internal/identity/repository"
	identityService "github.com/allisson/envie/internal/identity/service"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
	projectRepository "github.com/allisson/envie/internal/project/repository"
)

// IdentityService returns the service deriving project token identities.
func (c *Container) IdentityService() identityService.IdentityService {
	c.identityServiceInit.Do(func() {
		c.identityService = identityService.NewIdentityService()
	})
	return c.identityService
}

// LinkingCodeService returns the service generating and hashing linking codes.
func (c *Container) LinkingCodeService() (identityService.LinkingCodeService, error) {
	var err error
	c.linkingCodeServiceInit.Do(func() {
		c.linkingCodeService, err = identityService.NewLinkingCodeService()
		if err != nil {
			c.initErrors["linkingCodeService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["linkingCodeService"]; exists {
		return nil, storedErr
	}
	return c.linkingCodeService, nil
}

// DeviceRepository returns the device repository based on database driver.
func (c *Container) DeviceRepository() (identityUseCase.DeviceRepository, error) {
	var err error
	c.deviceRepositoryInit.Do(func() {
		c.deviceRepository, err = c.initDeviceRepository()
		if err != nil {
			c.initErrors["deviceRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceRepository"]; exists {
		return nil, storedErr
	}
	return c.deviceRepository, nil
}

// UserKeyRepository returns the user key repository based on database driver.
func (c *Container) UserKeyRepository() (identityUseCase.UserKeyRepository, error) {
	var err error
	c.userKeyRepositoryInit.Do(func() {
		c.userKeyRepository, err = c.initUserKeyRepository()
		if err != nil {
			c.initErrors["userKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.userKeyRepository, nil
}

// LinkingCodeRepository returns the linking code repository based on database driver.
func (c *Container) LinkingCodeRepository() (identityUseCase.LinkingCodeRepository, error) {
	var err error
	c.linkingCodeRepoInit.Do(func() {
		c.linkingCodeRepository, err = c.initLinkingCodeRepository()
		if err != nil {
			c.initErrors["linkingCodeRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["linkingCodeRepository"]; exists {
		return nil, storedErr
	}
	return c.linkingCodeRepository, nil
}

// ProjectTokenRepository returns the project token repository based on database driver.
func (c *Container) ProjectTokenRepository() (identityUseCase.ProjectTokenRepository, error) {
	var err error
	c.projectTokenRepoInit.Do(func() {
		c.projectTokenRepository, err = c.initProjectTokenRepository()
		if err != nil {
			c.initErrors["projectTokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["projectTokenRepository"]; exists {
		return nil, storedErr
	}
	return c.projectTokenRepository, nil
}

// MembershipRepository returns the membership repository master key rotation
// reads coverage from.
func (c *Container) MembershipRepository() (identityUseCase.MembershipRepository, error) {
	var err error
	c.membershipRepositoryInit.Do(func() {
		c.membershipRepository, err = c.initMembershipRepository()
		if err != nil {
			c.initErrors["membershipRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["membershipRepository"]; exists {
		return nil, storedErr
	}
	return c.membershipRepository, nil
}

// DeviceUseCase returns the device registry use case.
func (c *Container) DeviceUseCase() (identityUseCase.DeviceUseCase, error) {
	var err error
	c.deviceUseCaseInit.Do(func() {
		c.deviceUseCase, err = c.initDeviceUseCase()
		if err != nil {
			c.initErrors["deviceUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceUseCase"]; exists {
		return nil, storedErr
	}
	return c.deviceUseCase, nil
}

// TokenUseCase returns the project token use case.
func (c *Container) TokenUseCase() (identityUseCase.TokenUseCase, error) {
	var err error
	c.tokenUseCaseInit.Do(func() {
		c.tokenUseCase, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// MasterRotationUseCase returns the master key rotation use case.
func (c *Container) MasterRotationUseCase() (identityUseCase.MasterRotationUseCase, error) {
	var err error
	c.masterRotationUseCaseInit.Do(func() {
		c.masterRotationUseCase, err = c.initMasterRotationUseCase()
		if err != nil {
			c.initErrors["masterRotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterRotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.masterRotationUseCase, nil
}

// DeviceHandler returns the device HTTP handler.
func (c *Container) DeviceHandler() (*identityHTTP.DeviceHandler, error) {
	var err error
	c.deviceHandlerInit.Do(func() {
		c.deviceHandler, err = c.initDeviceHandler()
		if err != nil {
			c.initErrors["deviceHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deviceHandler"]; exists {
		return nil, storedErr
	}
	return c.deviceHandler, nil
}

// TokenHandler returns the project token HTTP handler.
func (c *Container) TokenHandler() (*identityHTTP.TokenHandler, error) {
	var err error
	c.tokenHandlerInit.Do(func() {
		c.tokenHandler, err = c.initTokenHandler()
		if err != nil {
			c.initErrors["tokenHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenHandler, nil
}

// initDeviceRepository creates the device repository based on the database driver.
func (c *Container) initDeviceRepository() (identityUseCase.DeviceRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for device repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLDeviceRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLDeviceRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initUserKeyRepository creates the user key repository based on the database driver.
func (c *Container) initUserKeyRepository() (identityUseCase.UserKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLUserKeyRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLUserKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLinkingCodeRepository creates the linking code repository based on the database driver.
func (c *Container) initLinkingCodeRepository() (identityUseCase.LinkingCodeRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for linking code repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLLinkingCodeRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLLinkingCodeRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initProjectTokenRepository creates the project token repository based on the database driver.
func (c *Container) initProjectTokenRepository() (identityUseCase.ProjectTokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for project token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLProjectTokenRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLProjectTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initMembershipRepository creates the membership repository based on the
// database driver. The team repository implements the membership operations,
// since team and organization membership rows live on its side of the schema.
func (c *Container) initMembershipRepository() (identityUseCase.MembershipRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for membership repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return projectRepository.NewPostgreSQLTeamRepository(db), nil
	case "mysql":
		return projectRepository.NewMySQLTeamRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeviceUseCase creates the device use case with all its dependencies.
func (c *Container) initDeviceUseCase() (identityUseCase.DeviceUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for device use case: %w", err)
	}

	deviceRepository, err := c.DeviceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device repository for device use case: %w", err)
	}

	userKeyRepository, err := c.UserKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key repository for device use case: %w", err)
	}

	linkingCodeRepository, err := c.LinkingCodeRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get linking code repository for device use case: %w", err)
	}

	linkingCodeService, err := c.LinkingCodeService()
	if err != nil {
		return nil, fmt.Errorf("failed to get linking code service for device use case: %w", err)
	}

	return identityUseCase.NewDeviceUseCase(
		txManager,
		deviceRepository,
		userKeyRepository,
		linkingCodeRepository,
		linkingCodeService,
	), nil
}

// initTokenUseCase creates the project token use case with all its dependencies.
func (c *Container) initTokenUseCase() (identityUseCase.TokenUseCase, error) {
	projectTokenRepository, err := c.ProjectTokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get project token repository for token use case: %w", err)
	}

	return identityUseCase.NewTokenUseCase(projectTokenRepository, c.IdentityService()), nil
}

// initMasterRotationUseCase creates the master rotation use case with all its dependencies.
func (c *Container) initMasterRotationUseCase() (identityUseCase.MasterRotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for master rotation use case: %w", err)
	}

	deviceRepository, err := c.DeviceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get device repository for master rotation use case: %w", err)
	}

	userKeyRepository, err := c.UserKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user key repository for master rotation use case: %w", err)
	}

	membershipRepository, err := c.MembershipRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get membership repository for master rotation use case: %w", err)
	}

	return identityUseCase.NewMasterRotationUseCase(
		txManager,
		deviceRepository,
		userKeyRepository,
		membershipRepository,
	), nil
}

// initDeviceHandler creates the device HTTP handler.
func (c *Container) initDeviceHandler() (*identityHTTP.DeviceHandler, error) {
	deviceUseCase, err := c.DeviceUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get device use case for device handler: %w", err)
	}

	masterRotationUseCase, err := c.MasterRotationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get master rotation use case for device handler: %w", err)
	}

	return identityHTTP.NewDeviceHandler(deviceUseCase, masterRotationUseCase, c.Logger()), nil
}

// initTokenHandler creates the project token HTTP handler.
func (c *Container) initTokenHandler() (*identityHTTP.TokenHandler, error) {
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for token handler: %w", err)
	}

	return identityHTTP.NewTokenHandler(tokenUseCase, c.Logger()), nil
}
