package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"targetapi/pkg/engine"
	"targetapi/pkg/mirror"
	"targetapi/pkg/utils/logger"
)

func printRootHelp() {
	fmt.Println(`targetapi - echo server that prints every request it receives

Usage:
  targetapi <command> [options]

Available Commands:
  up        Start the targetapi server
  down      Stop the targetapi server
  init      Write a default config file
  tail      Stream request dumps mirrored to Redis
  help      Show help for a command

Run 'targetapi help <command>' for details on a specific command.`)
}

func printUpHelp() {
	fmt.Println(`Usage:
  targetapi up [--config <path>]

Options:
  --config   Path to targetapi config YAML file (default: ./targetapi.config.yaml,
             built-in defaults are used when that file does not exist)`)
}

func printDownHelp() {
	fmt.Println(`Usage:
  targetapi down [--config <path>]

Options:
  --config   Path to the config YAML file the server was started with (default: ./targetapi.config.yaml)`)
}

func printInitHelp() {
	fmt.Println(`Usage:
  targetapi init [--config <path>] [--force]

Options:
  --config   Where to write the config YAML file (default: ./targetapi.config.yaml)
  --force    Overwrite an existing file`)
}

func printTailHelp() {
	fmt.Println(`Usage:
  targetapi tail [--config <path>]

Options:
  --config   Path to a config YAML file with a mirror.redis section (default: ./targetapi.config.yaml)`)
}

// parseConfigFlag parses args and resolves --config. The returned bool reports
// whether the flag was given explicitly. requireExisting rejects an explicit
// path that does not exist.
func parseConfigFlag(cmd *flag.FlagSet, args []string, requireExisting bool) (string, bool) {
	configPath := cmd.String("config", engine.DEFAULT_CONFIG_FILE, "Path to configuration YAML file")

	if err := cmd.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	explicit := false
	cmd.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	absPath, err := engine.ResolveConfigPath(*configPath, explicit, requireExisting)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	return absPath, explicit
}

func main() {
	if len(os.Args) < 2 {
		printRootHelp()
		os.Exit(1)
	}

	switch os.Args[1] {

	case "up":
		configPath, mustExist := parseConfigFlag(flag.NewFlagSet("up", flag.ExitOnError), os.Args[2:], true)

		server, err := engine.InstantiateTargetAPIEngine(configPath, mustExist)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to start targetapi: %v\n", err)
			os.Exit(1)
		}
		if err := server.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "targetapi stopped with error: %v\n", err)
			os.Exit(1)
		}

	case "down":
		configPath, mustExist := parseConfigFlag(flag.NewFlagSet("down", flag.ExitOnError), os.Args[2:], true)

		pid, err := engine.KillTargetAPI(configPath, mustExist)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to kill the targetapi server for %s: %v\n", configPath, err)
			os.Exit(1)
		}
		fmt.Printf("Shut down targetapi server (pid %d) for %s\n", pid, configPath)

	case "init":
		initCmd := flag.NewFlagSet("init", flag.ExitOnError)
		force := initCmd.Bool("force", false, "Overwrite an existing config file")
		configPath, _ := parseConfigFlag(initCmd, os.Args[2:], false)

		if _, err := os.Stat(configPath); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "Config file already exists: %s (use --force to overwrite)\n", configPath)
			os.Exit(1)
		}
		if err := engine.InitConfig(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", configPath)

	case "tail":
		configPath, mustExist := parseConfigFlag(flag.NewFlagSet("tail", flag.ExitOnError), os.Args[2:], true)

		if err := tail(configPath, mustExist); err != nil {
			fmt.Fprintf(os.Stderr, "Tail failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		if len(os.Args) == 2 {
			printRootHelp()
		} else {
			switch os.Args[2] {
			case "up":
				printUpHelp()
			case "down":
				printDownHelp()
			case "init":
				printInitHelp()
			case "tail":
				printTailHelp()
			default:
				fmt.Printf("Unknown help topic: %s\n", os.Args[2])
				printRootHelp()
				os.Exit(1)
			}
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printRootHelp()
		os.Exit(1)
	}
}

func tail(configPath string, mustExist bool) error {
	config, err := engine.LoadConfig(configPath, mustExist)
	if err != nil {
		return err
	}
	if config.Mirror.Redis == nil || config.Mirror.Redis.Address == "" {
		return fmt.Errorf("no mirror.redis.address configured in %s", configPath)
	}

	logger_, err := logger.NewLogger(config.Log)
	if err != nil {
		return fmt.Errorf("unable to instantiate the logger: %w", err)
	}
	defer logger_.Close()

	m := mirror.NewRedisMirror(config.Mirror.Redis, logger_)
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := m.Health(ctx); err != nil {
		return fmt.Errorf("redis at %s is unreachable: %w", config.Mirror.Redis.Address, err)
	}

	return m.Tail(ctx, os.Stdout)
}
