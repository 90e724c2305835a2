// main.go - Command line entry point for the Another World engine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"golang.org/x/term"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nAnother World / Out Of This World engine on the Intuition Engine stack.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

// commandLine holds parsed flags. Only flags given explicitly override
// the configuration file.
type commandLine struct {
	configPath string
	dataDir    string
	saveDir    string
	part       string
	fast       bool
	scale      int
	fullscreen bool
	noSound    bool
	headless   bool
	terminal   bool
	script     string
	reload     bool
	verbosity  int
	logFile    string

	list   bool
	disasm string
	unpack string
	pack   string
	output string

	set map[string]bool
}

func newFlagSet(cl *commandLine) *flag.FlagSet {
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&cl.configPath, "config", ConfigFileName, "Configuration file")
	flagSet.StringVar(&cl.dataDir, "data", "", "Directory holding memlist.bin and the bank files")
	flagSet.StringVar(&cl.saveDir, "save", "", "Directory for raw.sNN save states")
	flagSet.StringVar(&cl.part, "part", "", "Starting part, 0x3E80-0x3E89")
	flagSet.BoolVar(&cl.fast, "fast", false, "Start in fast mode (no frame pacing)")
	flagSet.IntVar(&cl.scale, "scale", 0, "Window scale factor (1-6)")
	flagSet.BoolVar(&cl.fullscreen, "fullscreen", false, "Start fullscreen")
	flagSet.BoolVar(&cl.noSound, "nosound", false, "Disable audio output")
	flagSet.BoolVar(&cl.headless, "headless", false, "Run without a window")
	flagSet.BoolVar(&cl.terminal, "terminal", false, "Read keys from the terminal")
	flagSet.StringVar(&cl.script, "script", "", "Lua automation script")
	flagSet.BoolVar(&cl.reload, "reload", false, "Reload the Lua script when it changes")
	flagSet.IntVar(&cl.verbosity, "v", 0, "Log verbosity (0 notices, 1 info, 2 debug)")
	flagSet.StringVar(&cl.logFile, "log", "", "Log to file instead of stderr")
	flagSet.BoolVar(&cl.list, "list", false, "List the resource directory and exit")
	flagSet.StringVar(&cl.disasm, "disasm", "", "Disassemble bytecode resource N and exit")
	flagSet.StringVar(&cl.unpack, "unpack", "", "Write unpacked resource N to -o and exit")
	flagSet.StringVar(&cl.pack, "pack", "", "Pack a raw file to -o and exit")
	flagSet.StringVar(&cl.output, "o", "", "Output file for -unpack and -pack")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./anotherworld [-config file] [-data dir] [-part 0x3E80] [flags]")
		fmt.Println("       ./anotherworld -list | -disasm N | -unpack N -o file | -pack file -o file")
		flagSet.PrintDefaults()
	}
	return flagSet
}

func parseCommandLine(args []string) (*commandLine, *flag.FlagSet, error) {
	cl := &commandLine{set: make(map[string]bool)}
	flagSet := newFlagSet(cl)
	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	flagSet.Visit(func(f *flag.Flag) { cl.set[f.Name] = true })
	if flagSet.NArg() > 0 {
		return nil, flagSet, fmt.Errorf("unexpected argument %q", flagSet.Arg(0))
	}
	if (cl.unpack != "" || cl.pack != "") && cl.output == "" {
		return nil, flagSet, errors.New("-unpack and -pack need -o")
	}
	return cl, flagSet, nil
}

// loadConfig reads the configuration file and applies the flags over it.
// The default file name may be missing; an explicit -config may not.
func (cl *commandLine) loadConfig() (*Config, error) {
	cfg, err := LoadConfig(cl.configPath, !cl.set["config"])
	if err != nil {
		return nil, err
	}
	if err := cl.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cl *commandLine) apply(cfg *Config) error {
	if cl.set["data"] {
		cfg.Data.Dir = cl.dataDir
		if !cl.set["save"] && cfg.Path == "" {
			cfg.Save.Dir = cl.dataDir
		}
	}
	if cl.set["save"] {
		cfg.Save.Dir = cl.saveDir
	}
	if cl.set["part"] {
		part, err := parseUint16Flag(cl.part)
		if err != nil {
			return fmt.Errorf("invalid -part: %w", err)
		}
		cfg.Engine.Part = part
	}
	if cl.set["fast"] {
		cfg.Engine.FastMode = cl.fast
	}
	if cl.set["scale"] {
		cfg.Video.Scale = ClampScale(cl.scale)
	}
	if cl.set["fullscreen"] {
		cfg.Video.Fullscreen = cl.fullscreen
	}
	if cl.set["nosound"] {
		enabled := !cl.noSound
		cfg.Audio.Enabled = &enabled
	}
	if cl.set["headless"] && cl.headless {
		cfg.Video.Backend = "headless"
	}
	if cl.set["terminal"] {
		cfg.Engine.Terminal = cl.terminal
	}
	if cl.set["script"] {
		cfg.Script.File = cl.script
	}
	if cl.set["reload"] {
		cfg.Script.Reload = cl.reload
	}
	if cl.set["v"] {
		cfg.Log.Verbosity = cl.verbosity
	}
	if cl.set["log"] {
		cfg.Log.File = cl.logFile
	}
	return nil
}

func (cl *commandLine) toolMode() bool {
	return cl.list || cl.disasm != "" || cl.unpack != "" || cl.pack != ""
}

func runTool(cl *commandLine, cfg *Config) error {
	if cl.pack != "" {
		raw, packed, err := PackFile(cl.pack, cl.output)
		if err != nil {
			return err
		}
		fmt.Printf("Packed %d bytes into %d bytes: %s\n", raw, packed, cl.output)
		return nil
	}

	banks := NewBankSet(cfg.Data.Dir)
	descs, err := banks.OpenDirectory()
	if err != nil {
		return err
	}
	switch {
	case cl.list:
		return ListResources(os.Stdout, descs)
	case cl.disasm != "":
		id, err := parseUint16Flag(cl.disasm)
		if err != nil {
			return fmt.Errorf("invalid -disasm: %w", err)
		}
		return DisassembleResource(os.Stdout, banks, descs, int(id))
	default:
		id, err := parseUint16Flag(cl.unpack)
		if err != nil {
			return fmt.Errorf("invalid -unpack: %w", err)
		}
		data, err := ExtractResource(banks, descs, int(id))
		if err != nil {
			return err
		}
		if err := os.WriteFile(cl.output, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote resource 0x%02X (%d bytes) to %s\n", id, len(data), cl.output)
		return nil
	}
}

// statusDisplay is implemented by outputs that can show a status bar.
type statusDisplay interface {
	SetStatusSource(s StatusSource)
	SetStatusBarVisible(show bool)
}

func main() {
	cl, flagSet, err := parseCommandLine(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.Usage()
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := cl.loadConfig()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	configureLogging(cfg.Log.Verbosity, cfg.Log.File)

	if cl.toolMode() {
		if err := runTool(cl, cfg); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	boilerPlate()

	backend := VIDEO_BACKEND_EBITEN
	if cfg.Video.Backend == "headless" {
		backend = VIDEO_BACKEND_HEADLESS
	}
	latch := NewInputLatch()
	out, err := NewVideoOutput(backend, latch)
	if err != nil {
		fmt.Printf("Failed to initialize video: %v\n", err)
		os.Exit(1)
	}
	if err := out.SetDisplayConfig(DisplayConfig{
		Width:      screenWidth,
		Height:     screenHeight,
		Scale:      cfg.Video.Scale,
		Fullscreen: cfg.Video.Fullscreen,
	}); err != nil {
		fmt.Printf("Failed to configure video: %v\n", err)
		os.Exit(1)
	}

	engine := NewEngine(cfg, out, latch)
	if err := engine.Init(); err != nil {
		fmt.Printf("Failed to start game: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if cfg.SoundEnabled() {
		if err := engine.StartAudio(); err != nil {
			fmt.Printf("Sound disabled: %v\n", err)
		}
	}

	if cfg.Script.File != "" {
		hook, err := NewScriptHook(cfg.Script.File, engine, latch)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if cfg.Script.Reload {
			if err := hook.Watch(); err != nil {
				fmt.Printf("Script reload disabled: %v\n", err)
			}
		}
		engine.AttachScript(hook)
	}

	if sd, ok := out.(statusDisplay); ok {
		sd.SetStatusSource(engine)
		sd.SetStatusBarVisible(cfg.Video.StatusBar)
	}

	if cfg.Engine.Terminal || (backend == VIDEO_BACKEND_HEADLESS && term.IsTerminal(int(os.Stdin.Fd()))) {
		host := NewTerminalHost(latch)
		if err := host.Start(); err != nil {
			engineLog.Warningf("terminal input disabled: %v", err)
		} else {
			defer host.Stop()
		}
	}

	if err := out.Start(); err != nil {
		fmt.Printf("Failed to start video: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("Engine stopped: %v\n", err)
	}
}

func parseUint16Flag(value string) (uint16, error) {
	parsed, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(parsed), nil
}
