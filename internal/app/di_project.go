package app

import (
	"fmt"

	projectHTTP "github.com/allisson/envie/internal/project/http"
	projectRepository "github.com/allisson/envie/internal/project/repository"
	projectUseCase "github.com/allisson/envie/internal/project/usecase"
)

// ProjectRepository returns the project repository based on database driver.
func (c *Container) ProjectRepository() (projectUseCase.ProjectRepository, error) {
	var err error
	c.projectRepositoryInit.Do(func() {
		c.projectRepository, err = c.initProjectRepository()
		if err != nil {
			c.initErrors["projectRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["projectRepository"]; exists {
		return nil, storedErr
	}
	return c.projectRepository, nil
}

// ConfigItemRepository returns the config item repository based on database driver.
func (c *Container) ConfigItemRepository() (projectUseCase.ConfigItemRepository, error) {
	var err error
	c.configItemRepositoryInit.Do(func() {
		c.configItemRepository, err = c.initConfigItemRepository()
		if err != nil {
			c.initErrors["configItemRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["configItemRepository"]; exists {
		return nil, storedErr
	}
	return c.configItemRepository, nil
}

// FileRepository returns the project file repository based on database driver.
func (c *Container) FileRepository() (projectUseCase.FileRepository, error) {
	var err error
	c.fileRepositoryInit.Do(func() {
		c.fileRepository, err = c.initFileRepository()
		if err != nil {
			c.initErrors["fileRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileRepository"]; exists {
		return nil, storedErr
	}
	return c.fileRepository, nil
}

// TeamRepository returns the team repository based on database driver.
func (c *Container) TeamRepository() (projectUseCase.TeamRepository, error) {
	var err error
	c.teamRepositoryInit.Do(func() {
		c.teamRepository, err = c.initTeamRepository()
		if err != nil {
			c.initErrors["teamRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["teamRepository"]; exists {
		return nil, storedErr
	}
	return c.teamRepository, nil
}

// ConfigUseCase returns the project configuration use case.
func (c *Container) ConfigUseCase() (projectUseCase.ConfigUseCase, error) {
	var err error
	c.configUseCaseInit.Do(func() {
		c.configUseCase, err = c.initConfigUseCase()
		if err != nil {
			c.initErrors["configUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["configUseCase"]; exists {
		return nil, storedErr
	}
	return c.configUseCase, nil
}

// ConfigHandler returns the project configuration HTTP handler.
func (c *Container) ConfigHandler() (*projectHTTP.ConfigHandler, error) {
	var err error
	c.configHandlerInit.Do(func() {
		c.configHandler, err = c.initConfigHandler()
		if err != nil {
			c.initErrors["configHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["configHandler"]; exists {
		return nil, storedErr
	}
	return c.configHandler, nil
}

// initProjectRepository creates the project repository based on the database driver.
func (c *Container) initProjectRepository() (projectUseCase.ProjectRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for project repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return projectRepository.NewPostgreSQLProjectRepository(db), nil
	case "mysql":
		return projectRepository.NewMySQLProjectRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initConfigItemRepository creates the config item repository based on the database driver.
func (c *Container) initConfigItemRepository() (projectUseCase.ConfigItemRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for config item repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return projectRepository.NewPostgreSQLConfigItemRepository(db), nil
	case "mysql":
		return projectRepository.NewMySQLConfigItemRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initFileRepository creates the project file repository based on the database driver.
func (c *Container) initFileRepository() (projectUseCase.FileRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for file repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return projectRepository.NewPostgreSQLFileRepository(db), nil
	case "mysql":
		return projectRepository.NewMySQLFileRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTeamRepository creates the team repository based on the database driver.
func (c *Container) initTeamRepository() (projectUseCase.TeamRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for team repository: %w", err)
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

// initConfigUseCase creates the config use case with all its dependencies.
func (c *Container) initConfigUseCase() (projectUseCase.ConfigUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for config use case: %w", err)
	}

	projectRepo, err := c.ProjectRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get project repository for config use case: %w", err)
	}

	configItemRepo, err := c.ConfigItemRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get config item repository for config use case: %w", err)
	}

	fileRepo, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for config use case: %w", err)
	}

	teamRepo, err := c.TeamRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get team repository for config use case: %w", err)
	}

	return projectUseCase.NewConfigUseCase(txManager, projectRepo, configItemRepo, fileRepo, teamRepo), nil
}

// initConfigHandler creates the project configuration HTTP handler.
func (c *Container) initConfigHandler() (*projectHTTP.ConfigHandler, error) {
	configUseCase, err := c.ConfigUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get config use case for config handler: %w", err)
	}

	return projectHTTP.NewConfigHandler(configUseCase, c.Logger()), nil
}
