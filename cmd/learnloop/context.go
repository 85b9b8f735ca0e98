package main

import (
	"os"
	"strings"
	"sync"

	"github.com/yungbote/learnloop-backend/internal/app"
	"github.com/yungbote/learnloop-backend/internal/config"
	"github.com/yungbote/learnloop-backend/internal/observability"
	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger
	logErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil {
			if path := strings.TrimSpace(*c.configFlag); path != "" {
				if err := os.Setenv("LEARNLOOP_CONFIG_PATH", path); err != nil {
					c.configErr = err
					return
				}
			}
		}
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*logger.Logger, error) {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.log, c.logErr = logger.New(cfg.Env)
	})
	return c.log, c.logErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// clients builds the store-free pipeline for the one-shot commands.
func (c *commandContext) clients() (app.Clients, *logger.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return app.Clients{}, nil, err
	}
	log, err := c.logger()
	if err != nil {
		return app.Clients{}, nil, err
	}
	clients, err := app.WireClients(log, cfg, observability.Init(log))
	if err != nil {
		return app.Clients{}, nil, err
	}
	return clients, log, nil
}
