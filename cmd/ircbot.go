package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"ircreactor"
)

func main() {
	var configFilePath string
	rootCmd := &cobra.Command{
		Use:          "ircbot",
		Short:        "Run an IRC bot on top of the ircreactor event loop",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := ircreactor.LoadConfig(configFilePath)
			if err != nil {
				return err
			}
			initLog(config)
			return run(config)
		},
	}
	rootCmd.Flags().StringVarP(&configFilePath, "config", "c", "./cmd/config.toml", "path to configuration file.")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLog(config *ircreactor.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(config.Global.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if config.Global.LogFile != "" {
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   config.Global.LogFile,
			MaxSize:    config.Global.LogMaxSizeMB,
			MaxBackups: config.Global.LogMaxBackups,
		})
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Msgf("unknown log level %q, using info", config.Global.LogLevel)
	}
}

func run(config *ircreactor.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info().Msg("starting bot...")
	manager, err := ircreactor.NewManager(ctx, config)
	if err != nil {
		return err
	}
	return manager.Run(&bot{manager: manager})
}

type bot struct {
	manager *ircreactor.Manager
}

func (b *bot) HandleMessage(ctx ircreactor.MessageContext, msg ircreactor.Message, err error) (ircreactor.Reaction, error) {
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Warn().Msgf("[session %d] connection closed by server", ctx.SessionId.Index())
		} else {
			log.Error().Msgf("[session %d] receive failed: %+v", ctx.SessionId.Index(), err)
		}
		return ircreactor.NoReaction{}, nil
	}
	if log.Debug().Enabled() {
		log.Debug().Msgf("[session %d] <- %s", ctx.SessionId.Index(), msg.Raw())
	}
	switch msg.Command() {
	case "001":
		return b.join(ctx.SessionId)
	case "PRIVMSG":
		return b.privmsg(msg)
	}
	return ircreactor.NoReaction{}, nil
}

func (b *bot) join(id ircreactor.SessionId) (ircreactor.Reaction, error) {
	server, ok := b.manager.Server(id)
	if !ok {
		return ircreactor.NoReaction{}, nil
	}
	reactions := ircreactor.Multi{}
	for _, channel := range server.Channels {
		join, err := ircreactor.NewMessage("JOIN", channel)
		if err != nil {
			return nil, err
		}
		reactions = append(reactions, ircreactor.RawMsg{Message: join})
	}
	return reactions, nil
}

func (b *bot) privmsg(msg ircreactor.Message) (ircreactor.Reaction, error) {
	params := msg.Params()
	if len(params) < 2 || strings.TrimSpace(msg.Trailing()) != "!ping" {
		return ircreactor.NoReaction{}, nil
	}
	target := params[0]
	if !strings.HasPrefix(target, "#") && !strings.HasPrefix(target, "&") {
		target = msg.Nick()
	}
	reply, err := ircreactor.NewMessage("PRIVMSG", target, "pong")
	if err != nil {
		return nil, err
	}
	return ircreactor.RawMsg{Message: reply}, nil
}
