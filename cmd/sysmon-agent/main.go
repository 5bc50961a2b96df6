package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"code.cloudfoundry.org/sysmon-agent/cmd/sysmon-agent/app"
	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
)

func main() {
	logger := log.New()
	logger.Infof("starting sysmon-agent")
	defer logger.Infof("stopping sysmon-agent")

	cfg := app.LoadConfig(logger)
	logger.SetLevel(cfg.LogLevel)
	if cfg.UseRFC3339 {
		logger.UseRFC3339()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.NewSysmonAgent(cfg, logger).Run(ctx)
}
