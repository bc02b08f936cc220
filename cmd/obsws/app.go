package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/guseggert/obsws/client"
	"github.com/guseggert/obsws/client/protocol"
	"github.com/guseggert/obsws/internal/config"
	"github.com/guseggert/obsws/internal/tlsutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:   "obsws",
		Usage:  "send requests to OBS and watch its events over obs-websocket",
		Writer: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a config.toml. By default it is searched for in the working directory and its parents, then in the home directory.",
				EnvVars: []string{"OBSWS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "The obs-websocket host.",
				EnvVars: []string{"OBSWS_HOST"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "The obs-websocket port.",
				EnvVars: []string{"OBSWS_PORT"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "The obs-websocket password.",
				EnvVars: []string{"OBSWS_PASSWORD"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout for connecting and for each request.",
				EnvVars: []string{"OBSWS_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "secure",
				Usage:   "Connect with wss://.",
				EnvVars: []string{"OBSWS_SECURE"},
			},
			&cli.StringFlag{
				Name:    "ca-cert",
				Usage:   "PEM file of the CA to trust for wss://. Implies --secure.",
				EnvVars: []string{"OBSWS_CA_CERT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "One of [debug,info,warn,error].",
				Value:   "warn",
				EnvVars: []string{"OBSWS_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "request",
				Usage:     "send a request and print its response data",
				ArgsUsage: "TYPE [JSON]",
				Action:    request,
			},
			{
				Name:      "batch",
				Usage:     "send several requests without data concurrently",
				ArgsUsage: "TYPE...",
				Action:    batch,
			},
			{
				Name:   "version",
				Usage:  "print the OBS and obs-websocket versions",
				Action: version,
			},
			{
				Name:      "listen",
				Usage:     "print events until interrupted",
				ArgsUsage: "[EVENT...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "subs",
						Usage: "Event subscriptions, e.g. low,input_volume_meters.",
						Value: "low",
					},
				},
				Action: listen,
			},
		},
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l.WithOptions(zap.IncreaseLevel(lvl)), nil
}

// connection combines the config file with the flags, flags taking precedence.
func connection(ctx *cli.Context) (client.ConnectionParameters, []client.Option, error) {
	logger, err := newLogger(ctx.String("log-level"))
	if err != nil {
		return client.ConnectionParameters{}, nil, err
	}

	conn, path, err := config.Discover(ctx.String("config"))
	if err != nil {
		return client.ConnectionParameters{}, nil, err
	}
	if path != "" {
		logger.Sugar().Debugw("loaded config", "Path", path)
	}
	params := conn.Params()

	if ctx.IsSet("host") {
		params.Host = ctx.String("host")
	}
	if ctx.IsSet("port") {
		params.Port = ctx.Int("port")
	}
	if ctx.IsSet("password") {
		params.Password = ctx.String("password")
	}
	if ctx.IsSet("timeout") {
		params.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("secure") {
		params.Secure = ctx.Bool("secure")
	}

	opts := []client.Option{client.WithLogger(logger)}
	if caCert := ctx.String("ca-cert"); caCert != "" {
		tlsConfig, err := tlsutil.ClientTLSConfigFromFile(caCert)
		if err != nil {
			return client.ConnectionParameters{}, nil, err
		}
		params.Secure = true
		opts = append(opts, client.WithTLSConfig(tlsConfig))
	}
	return params, opts, nil
}

func dial(ctx *cli.Context) (*client.Client, error) {
	params, opts, err := connection(ctx)
	if err != nil {
		return nil, err
	}
	return client.New(ctx.Context, params, opts...)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func request(ctx *cli.Context) error {
	requestType := ctx.Args().Get(0)
	if requestType == "" {
		return errors.New("a request type is required")
	}
	var data json.RawMessage
	if arg := ctx.Args().Get(1); arg != "" {
		if !json.Valid([]byte(arg)) {
			return fmt.Errorf("request data is not valid JSON: %s", arg)
		}
		data = json.RawMessage(arg)
	}

	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	d, err := c.Invoke(ctx.Context, requestType, data)
	if err != nil {
		return err
	}
	return printJSON(ctx.App.Writer, d)
}

func batch(ctx *cli.Context) error {
	requestTypes := ctx.Args().Slice()
	if len(requestTypes) == 0 {
		return errors.New("at least one request type is required")
	}

	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	results := make([]client.Data, len(requestTypes))
	group, groupCtx := errgroup.WithContext(ctx.Context)
	for i, requestType := range requestTypes {
		i, requestType := i, requestType
		group.Go(func() error {
			d, err := c.Invoke(groupCtx, requestType, nil)
			if err != nil {
				return err
			}
			results[i] = d
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	for i, requestType := range requestTypes {
		fmt.Fprintf(ctx.App.Writer, "%s: ", requestType)
		if err := printJSON(ctx.App.Writer, results[i]); err != nil {
			return err
		}
	}
	return nil
}

func version(ctx *cli.Context) error {
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	var resp struct {
		OBSVersion          string `json:"obsVersion"`
		OBSWebSocketVersion string `json:"obsWebSocketVersion"`
		RPCVersion          int    `json:"rpcVersion"`
	}
	if err := c.InvokeInto(ctx.Context, "GetVersion", nil, &resp); err != nil {
		return err
	}
	_, err = fmt.Fprintf(ctx.App.Writer, "OBS %s, obs-websocket %s, RPC version %d\n", resp.OBSVersion, resp.OBSWebSocketVersion, resp.RPCVersion)
	return err
}

func listen(ctx *cli.Context) error {
	subs, err := protocol.ParseSubs(ctx.String("subs"))
	if err != nil {
		return err
	}
	params, opts, err := connection(ctx)
	if err != nil {
		return err
	}
	params.Subs = subs

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt)
	defer stop()

	c, err := client.NewEventClient(sigCtx, params, opts...)
	if err != nil {
		return err
	}
	defer c.Unsubscribe()

	events := ctx.Args().Slice()
	if len(events) == 0 {
		events = []string{client.AllEvents}
	}
	w := ctx.App.Writer
	for _, name := range events {
		c.Callback.On(name, func(ev client.Event) error {
			b, err := json.Marshal(ev.Data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s %s\n", ev.Type, b)
			return err
		})
	}
	fmt.Fprintf(ctx.App.ErrWriter, "listening for %s events (%s), press Ctrl+C to stop\n", strings.Join(c.Callback.Get(), ", "), subs)

	select {
	case <-sigCtx.Done():
		return nil
	case <-c.Done():
		return c.Err()
	}
}
