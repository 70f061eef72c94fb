package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"

	"wattcli/pkg/dispatch"
	"wattcli/pkg/meter"
	"wattcli/pkg/remote"
	"wattcli/pkg/simulator"
	"wattcli/pkg/store"
	"wattcli/pkg/transport"
)

func openTransport(profile store.Profile, logger log.FieldLogger) (transport.Transport, error) {
	switch profile.Transport {
	case store.TransportSim:
		return simulator.New(logger), nil
	case store.TransportMQTT:
		return transport.DialMQTT(profile.MQTT, logger)
	case store.TransportTCP:
		return transport.DialTCP(profile.Addr, logger)
	default:
		return nil, &meter.ConfigError{Field: "transport", Value: profile.Transport, Message: "must be tcp, mqtt or sim"}
	}
}

// loadProfile reads the persisted connection profile and applies flag
// overrides on top.
func loadProfile(c *cli.Context, st *store.Store) (store.Profile, error) {
	profile, err := st.GetProfile()
	if err != nil {
		return store.Profile{}, fmt.Errorf("failed to load connection profile: %v", err)
	}

	if c.Bool("sim") {
		profile.Transport = store.TransportSim
	}
	if c.IsSet("transport") {
		profile.Transport = c.String("transport")
	}
	if c.IsSet("device") {
		profile.Addr = c.String("device")
	}
	if c.IsSet("broker") {
		profile.MQTT.Broker = c.String("broker")
	}

	return profile, nil
}

// runConfig handles the "config {show|set}" subcommand against the profile
// store; it never touches the instrument.
func runConfig(c *cli.Context, st *store.Store, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		profile, err := st.GetProfile()
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "transport    %s\n", profile.Transport)
		fmt.Fprintf(c.App.Writer, "device       %s\n", profile.Addr)
		fmt.Fprintf(c.App.Writer, "broker       %s\n", profile.MQTT.Broker)
		fmt.Fprintf(c.App.Writer, "topic-root   %s\n", profile.MQTT.TopicRoot)
		fmt.Fprintf(c.App.Writer, "listen-port  %d\n", profile.ListenPort)
		return nil
	}

	if args[0] != "set" || len(args) != 3 {
		return &meter.UsageError{Message: "config {show | set <field> <value>}"}
	}

	profile, err := st.GetProfile()
	if err != nil {
		return err
	}

	field, value := args[1], args[2]
	switch field {
	case "transport":
		profile.Transport = value
	case "device":
		profile.Addr = value
	case "broker":
		profile.MQTT.Broker = value
	case "topic-root":
		profile.MQTT.TopicRoot = value
	case "listen-port":
		var port int
		if _, err := fmt.Sscanf(value, "%d", &port); err != nil {
			return &meter.ConfigError{Field: field, Value: value, Message: "must be an integer"}
		}
		profile.ListenPort = port
	default:
		return &meter.ConfigError{Field: field, Value: value, Message: "unknown profile field"}
	}

	return st.SetProfile(profile)
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	tokens := c.Args().Slice()
	if len(tokens) == 0 {
		return cli.ShowAppHelp(c)
	}

	db, err := bolt.Open(c.String("db"), 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	st, err := store.New(db)
	if err != nil {
		return fmt.Errorf("failed to create store: %v", err)
	}

	// Profile maintenance works without the instrument attached.
	if tokens[0] == "config" {
		return runConfig(c, st, tokens[1:])
	}

	req, err := dispatch.Parse(tokens)
	if err != nil {
		return err
	}

	profile, err := loadProfile(c, st)
	if err != nil {
		return err
	}

	tr, err := openTransport(profile, log.StandardLogger())
	if err != nil {
		return err
	}
	defer tr.Close()

	exec := meter.NewExecutor(tr, log.StandardLogger())
	integ := meter.NewIntegration(exec, log.StandardLogger())

	disp := &dispatch.Dispatcher{
		Registry: meter.NewRegistry(),
		Exec:     exec,
		Integ:    integ,
		Loop:     meter.NewReadLoop(exec, integ, log.StandardLogger()),
		Logger:   log.WithField("component", "dispatch"),
	}
	disp.Listen = func(ctx context.Context, port int, sink io.Writer) error {
		if port < 0 {
			port = profile.ListenPort
			if port == 0 {
				port = remote.DefaultPort
			}
		}

		srv, err := remote.New(port, disp, log.StandardLogger())
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	}

	// Treat interrupt and terminate signals as a clean cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := disp.Run(ctx, req, c.App.Writer); err != nil {
		if errors.Is(err, meter.ErrInterrupted) {
			return cli.Exit("interrupted", 130)
		}
		return err
	}
	return nil
}

func main() {
	app := cli.App{
		Name:  "wattcli",
		Usage: "Bench power analyzer control",
		UsageText: "wattcli [options] <command> [arguments]\n\n" +
			"Commands:\n" +
			"   info                                    dump all readable properties\n" +
			"   read <items> [--limit L]                continuous read of comma-separated data items\n" +
			"   get <property>                          query one property\n" +
			"   set <property> [value|\"?\"]              set one property, ? for help\n" +
			"   integration {wait|start|stop|reset|state}\n" +
			"   smoothing {on|off|\"?\"}                  toggle signal smoothing\n" +
			"   calibrate                               run zero-level calibration\n" +
			"   factory-reset                           restore factory settings\n" +
			"   listen [--port P]                       serve remote command sessions\n" +
			"   config {show | set <field> <value>}     connection profile maintenance",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"DEBUG"},
			},
			&cli.BoolFlag{
				Name:  "sim",
				Usage: "Use the built-in instrument simulator",
			},
			&cli.StringFlag{
				Name:    "transport",
				Usage:   "Transport to the instrument: tcp, mqtt or sim",
				EnvVars: []string{"WATTCLI_TRANSPORT"},
			},
			&cli.StringFlag{
				Name:    "device",
				Usage:   "Instrument address (host:port) for the tcp transport",
				EnvVars: []string{"WATTCLI_DEVICE"},
			},
			&cli.StringFlag{
				Name:    "broker",
				Usage:   "MQTT broker URL for the mqtt transport",
				EnvVars: []string{"WATTCLI_BROKER"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Path to the connection profile database",
				Value:   "wattcli.db",
				EnvVars: []string{"WATTCLI_DB"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		var usageErr *meter.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, usageErr.Error())
			os.Exit(2)
		}
		log.Fatalf("Error: %v", err)
	}
}
