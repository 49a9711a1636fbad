/*
Headless testbed driver for the scene engine. Steps the frame loop
at a fixed rate until interrupted or the frame budget runs out.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spaghettifunk/aurora/engine/config"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file")
	numFrames := flag.Int("frames", 600, "number of frames to run, 0 for unlimited")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			core.LogFatal("load config: %v", err)
		}
		cfg = loaded
	}
	core.SetLogLevel(cfg.LogLevel)

	game, err := testbed.NewGame(cfg)
	if err != nil {
		core.LogFatal("create game: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	clock := core.NewClock()
	clock.Start()

	frame := 0
	for {
		select {
		case <-sigCh:
			core.LogInfo("interrupted, shutting down")
			if err := game.Shutdown(); err != nil {
				core.LogError("shutdown: %v", err)
			}
			return
		case <-ticker.C:
			clock.Update()
			packets := game.RunFrame(clock.Delta())
			frame++
			if frame%60 == 0 {
				core.LogInfo("frame %d at %.1fs: %d entities, %d draw packets",
					frame, clock.Elapsed(), game.GetScene().GetNumEntities(), len(packets))
			}
			if *numFrames > 0 && frame >= *numFrames {
				if err := game.Shutdown(); err != nil {
					core.LogError("shutdown: %v", err)
				}
				return
			}
		}
	}
}
