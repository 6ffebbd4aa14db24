package app

import (
	"fmt"

	identityRepository "github.com/allisson/envie/internal/identity/repository"
	projectRepository "github.com/allisson/envie/internal/project/repository"
	rotationHTTP "github.com/allisson/envie/internal/rotation/http"
	rotationRepository "github.com/allisson/envie/internal/rotation/repository"
	rotationUseCase "github.com/allisson/envie/internal/rotation/usecase"
)

// RotationRepository returns the key rotation repository based on database driver.
func (c *Container) RotationRepository() (rotationUseCase.RotationRepository, error) {
	var err error
	c.rotationRepositoryInit.Do(func() {
		c.rotationRepository, err = c.initRotationRepository()
		if err != nil {
			c.initErrors["rotationRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationRepository"]; exists {
		return nil, storedErr
	}
	return c.rotationRepository, nil
}

// RotationUseCase returns the project key rotation use case.
func (c *Container) RotationUseCase() (rotationUseCase.RotationUseCase, error) {
	var err error
	c.rotationUseCaseInit.Do(func() {
		c.rotationUseCase, err = c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// RotationHandler returns the key rotation HTTP handler.
func (c *Container) RotationHandler() (*rotationHTTP.RotationHandler, error) {
	var err error
	c.rotationHandlerInit.Do(func() {
		c.rotationHandler, err = c.initRotationHandler()
		if err != nil {
			c.initErrors["rotationHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationHandler"]; exists {
		return nil, storedErr
	}
	return c.rotationHandler, nil
}

// initRotationRepository creates the rotation repository based on the database driver.
func (c *Container) initRotationRepository() (rotationUseCase.RotationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return rotationRepository.NewPostgreSQLRotationRepository(db), nil
	case "mysql":
		return rotationRepository.NewMySQLRotationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRotationUseCase creates the rotation use case with all its dependencies.
// The rotation use case declares its own narrow repository interfaces, so the
// concrete repositories are built here per driver rather than reused from the
// project getters.
func (c *Container) initRotationUseCase() (rotationUseCase.RotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rotation use case: %w", err)
	}

	rotationRepo, err := c.RotationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation repository for rotation use case: %w", err)
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation use case: %w", err)
	}

	var (
		projectRepo rotationUseCase.ProjectRepository
		itemRepo    rotationUseCase.ConfigItemRepository
		fileRepo    rotationUseCase.FileRepository
		teamRepo    rotationUseCase.TeamRepository
		tokenRepo   rotationUseCase.ProjectTokenRepository
	)
	switch c.config.DBDriver {
	case "postgres":
		projectRepo = projectRepository.NewPostgreSQLProjectRepository(db)
		itemRepo = projectRepository.NewPostgreSQLConfigItemRepository(db)
		fileRepo = projectRepository.NewPostgreSQLFileRepository(db)
		teamRepo = projectRepository.NewPostgreSQLTeamRepository(db)
		tokenRepo = identityRepository.NewPostgreSQLProjectTokenRepository(db)
	case "mysql":
		projectRepo = projectRepository.NewMySQLProjectRepository(db)
		itemRepo = projectRepository.NewMySQLConfigItemRepository(db)
		fileRepo = projectRepository.NewMySQLFileRepository(db)
		teamRepo = projectRepository.NewMySQLTeamRepository(db)
		tokenRepo = identityRepository.NewMySQLProjectTokenRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	baseUseCase := rotationUseCase.NewRotationUseCase(
		txManager,
		rotationRepo,
		projectRepo,
		itemRepo,
		fileRepo,
		teamRepo,
		tokenRepo,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
		}
		return rotationUseCase.NewRotationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initRotationHandler creates the key rotation HTTP handler.
func (c *Container) initRotationHandler() (*rotationHTTP.RotationHandler, error) {
	useCase, err := c.RotationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation use case for rotation handler: %w", err)
	}

	return rotationHTTP.NewRotationHandler(useCase, c.Logger()), nil
}
