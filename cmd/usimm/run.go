package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anirbannag/usimm-pm/config"
	"github.com/anirbannag/usimm-pm/datarecording"
	"github.com/anirbannag/usimm-pm/frontend"
	"github.com/anirbannag/usimm-pm/mem/dram"
	"github.com/anirbannag/usimm-pm/monitoring"
	"github.com/anirbannag/usimm-pm/sim/hooking"
	"github.com/anirbannag/usimm-pm/sim/timing"
)

var (
	configFile     string
	recordDB       string
	recordCommands bool
	useMonitor     bool
	monitorPort    int
	openBrowser    bool
	maxCycles      int64
)

var runCmd = &cobra.Command{
	Use:   "run trace [trace...]",
	Short: "Run one trace per core to completion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runSimulation(args, os.Stdout)
	},
}

func init() {
	runCmd.Flags().StringVarP(&configFile, "config", "c", env.ConfigFile,
		"YAML configuration file")
	runCmd.Flags().StringVar(&recordDB, "record", env.RecordDB,
		"Record statistics into <record>.sqlite3")
	runCmd.Flags().BoolVar(&recordCommands, "record-commands", false,
		"Also record every DRAM command (needs --record)")
	runCmd.Flags().BoolVar(&useMonitor, "monitor", false,
		"Serve the monitoring web page while running")
	runCmd.Flags().IntVar(&monitorPort, "monitor-port", env.MonitorPort,
		"Port of the monitoring server, 0 picks a free port")
	runCmd.Flags().BoolVar(&openBrowser, "open-browser", false,
		"Open the monitoring page in a browser")
	runCmd.Flags().Int64Var(&maxCycles, "max-cycles", 0,
		"Stop after this many processor cycles, 0 uses the configuration")
}

type simulation struct {
	file     config.File
	engine   *timing.SerialEngine
	ctrl     *dram.Comp
	driver   *frontend.Driver
	counter  *hooking.TagCounter
	recorder datarecording.DataRecorder
	run      *datarecording.RunRecorder
	commands *dram.CommandRecorder
}

func runSimulation(traces []string, out io.Writer) error {
	f, err := loadConfig(len(traces))
	if err != nil {
		return err
	}

	readers := make([]io.Reader, 0, len(traces))

	for _, path := range traces {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening trace: %w", err)
		}
		defer file.Close()

		readers = append(readers, file)
	}

	s, err := buildSimulation(f, readers)
	if err != nil {
		return err
	}

	if useMonitor {
		if err := s.startMonitor(); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"cores":    f.Cores,
		"channels": s.ctrl.NumChannel(),
	}).Info("simulation started")

	runErr := s.driver.Run()

	printReport(out, s.report())

	if s.recorder != nil {
		s.record()
	}

	if runErr != nil {
		return runErr
	}

	logrus.WithField("cycle", s.driver.Cycle()).Info("simulation complete")

	return nil
}

func loadConfig(numCore int) (config.File, error) {
	f := config.Default()

	if configFile != "" {
		var err error

		f, err = config.Load(configFile)
		if err != nil {
			return config.File{}, err
		}
	}

	f.Cores = numCore
	if maxCycles > 0 {
		f.MaxCycles = maxCycles
	}

	return f, f.Validate()
}

func buildSimulation(f config.File, traces []io.Reader) (*simulation, error) {
	s := &simulation{
		file:   f,
		engine: timing.NewSerialEngine(),
		counter: hooking.NewTagCounter(dram.HookPosCommandIssued,
			func(ctx hooking.HookCtx) string {
				return ctx.Item.(dram.Command).Kind.String()
			}),
	}

	robs := frontend.NewReorderBuffers(f.Cores, f.ROBSize)

	mb, err := f.MemoryBuilder()
	if err != nil {
		return nil, err
	}

	mb = mb.WithCompletionSink(robs).WithAdditionalHooks(s.counter)

	if recordDB != "" {
		s.recorder = datarecording.New(recordDB)
		s.run = datarecording.NewRunRecorder(s.recorder, "run_info")
		s.run.Start()

		if recordCommands {
			s.commands = dram.NewCommandRecorder(s.recorder, "dram_command")
			mb = mb.WithAdditionalHooks(s.commands)
		}
	}

	s.ctrl, err = mb.Build("DRAM")
	if err != nil {
		return nil, err
	}

	s.driver, err = f.DriverBuilder().
		WithEngine(s.engine).
		WithMemory(s.ctrl).
		WithReorderBuffers(robs).
		WithTraces(traces...).
		Build("Driver")
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *simulation) startMonitor() error {
	m := monitoring.NewMonitor().
		WithPortNumber(monitorPort).
		WithBrowser(openBrowser)

	m.RegisterEngine(s.engine)
	m.RegisterComponent(s.ctrl, func() any { return s.ctrl.Stats() })
	m.RegisterComponent(s.driver, func() any { return s.coreReports() })

	bar := m.CreateProgressBar("Cores finished", uint64(s.driver.NumCore()))
	s.engine.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos == timing.HookPosAfterEvent {
			bar.SetFinished(uint64(s.driver.NumFinished()))
		}
	}))

	_, err := m.StartServer()

	return err
}
