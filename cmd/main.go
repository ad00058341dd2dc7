package main

import (
	"context"
	"flag"
	"fmt"
	"hurlfix/pkg/engine"
	"hurlfix/pkg/fixture"
	"hurlfix/pkg/probe"
	"os"
	"path/filepath"
	"time"
)

func printRootHelp() {
	fmt.Println(`hurlfix - fixture server for HTTP assertion suites

Usage:
  hurlfix <command> [options]

Available Commands:
  up        Start the hurlfix server
  down      Stop the hurlfix server
  init      Write a starter config file
  check     Request a URL and assert on the response
  help      Show help for a command

Run 'hurlfix help <command>' for details on a specific command.`)
}

func printUpHelp() {
	fmt.Println(`Usage:
  hurlfix up [--config <path>]

Options:
  --config   Path to hurlfix config YAML file (default: ./hurlfix.config.yaml)`)
}

func printDownHelp() {
	fmt.Println(`Usage:
  hurlfix down [--config <path>]

Options:
  --config   Path to hurlfix config YAML file (default: ./hurlfix.config.yaml)`)
}

func printInitHelp() {
	fmt.Println(`Usage:
  hurlfix init [--config <path>] [--force]

Options:
  --config   Where to write the config (default: ./hurlfix.config.yaml)
  --force    Overwrite an existing file`)
}

func printCheckHelp() {
	fmt.Println(`Usage:
  hurlfix check [options] <url>

Options:
  --method         HTTP method (default: GET)
  --status         Expected status code (0 skips the check)
  --content-type   Expected Content-Type
  --body           Expected body literal: "hex,ff;", "base64,/w==;", "file,path;" or text
  --timeout        Request timeout (default: 5s)`)
}

func resolveConfigPath(configPath string, mustExist bool) string {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to resolve config path: %v\n", err)
		os.Exit(1)
	}

	if mustExist {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Config file not found: %s\n", absPath)
			os.Exit(1)
		}
	}
	return absPath
}

func main() {
	if len(os.Args) < 2 {
		printRootHelp()
		os.Exit(1)
	}

	switch os.Args[1] {

	case "up":
		upCmd := flag.NewFlagSet("up", flag.ExitOnError)
		configPath := upCmd.String("config", "hurlfix.config.yaml", "Path to configuration YAML file")
		if err := upCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
			os.Exit(1)
		}

		absPath := resolveConfigPath(*configPath, true)
		fixtureEngine, err := engine.InstantiateHurlfixEngine(absPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to start hurlfix: %v\n", err)
			os.Exit(1)
		}
		if err := fixtureEngine.Run(context.Background()); err != nil {
			os.Exit(1)
		}

	case "down":
		downCmd := flag.NewFlagSet("down", flag.ExitOnError)
		configPath := downCmd.String("config", "hurlfix.config.yaml", "Path to configuration YAML file")
		if err := downCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
			os.Exit(1)
		}

		absPath := resolveConfigPath(*configPath, true)
		if err := engine.KillHurlfix(absPath); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to kill the hurlfix server at %s: %v\n", *configPath, err)
			os.Exit(1)
		}
		fmt.Printf("Shut down hurlfix server at %s\n", *configPath)

	case "init":
		initCmd := flag.NewFlagSet("init", flag.ExitOnError)
		configPath := initCmd.String("config", "hurlfix.config.yaml", "Where to write the config")
		force := initCmd.Bool("force", false, "Overwrite an existing config")
		if err := initCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
			os.Exit(1)
		}

		absPath := resolveConfigPath(*configPath, false)
		if err := engine.InitConfig(absPath, *force); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote hurlfix config to %s\n", absPath)

	case "check":
		checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
		method := checkCmd.String("method", "GET", "HTTP method")
		status := checkCmd.Int("status", 0, "Expected status code")
		contentType := checkCmd.String("content-type", "", "Expected Content-Type")
		body := checkCmd.String("body", "", "Expected body literal")
		timeout := checkCmd.Duration("timeout", 5*time.Second, "Request timeout")
		if err := checkCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
			os.Exit(1)
		}
		if checkCmd.NArg() != 1 {
			printCheckHelp()
			os.Exit(1)
		}

		exp := probe.Expectation{Status: *status, ContentType: *contentType}
		bodySet := false
		checkCmd.Visit(func(f *flag.Flag) {
			if f.Name == "body" {
				bodySet = true
			}
		})
		if bodySet {
			cwd, _ := os.Getwd()
			parsed, err := fixture.ParseBody(*body, cwd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid body literal: %v\n", err)
				os.Exit(1)
			}
			exp.Body = &parsed
		}

		report, err := probe.NewProber(nil, *timeout).Check(context.Background(), *method, checkCmd.Arg(0), exp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s %s -> %d (%s, %d bytes, %s)\n", report.Method, report.URL, report.Status,
			report.ContentType, len(report.Body), report.Elapsed.Round(time.Millisecond))
		if !report.Passed() {
			for _, failure := range report.Failures {
				fmt.Println(failure.String())
			}
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
			case "check":
				printCheckHelp()
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
