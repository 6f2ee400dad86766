package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/caldog20/tapserver/pkg/logger"
)

var (
	opts       = DefaultOptions()
	configPath string

	rootCmd = &cobra.Command{
		Use:   "tapserver",
		Short: "TAP to TCP frame relay",
		Long: "Bridges a TAP interface to TCP clients. Frames read from the device are\n" +
			"broadcast to every client, client frames are written to the device.\n" +
			"Without a device (--hub) client frames are relayed to all other clients.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				file, err := LoadOptions(configPath)
				if err != nil {
					return err
				}
				opts.merge(cmd, file)
			}
			setupLogging(opts)
			return opts.validate()
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("please use a subcommand or use -h for help")
		},
	}
)

func setupLogging(o Options) {
	if o.Color {
		log.SetFormatter(logger.New("tapserver"))
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if o.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file, flags override its values")
	flags.Uint16Var(&opts.Port, "port", opts.Port, "tcp port to listen for clients on")
	flags.IntVar(&opts.MaxClients, "max-clients", opts.MaxClients, "maximum number of connected clients")
	flags.DurationVar(&opts.Wait, "wait", opts.Wait, "poll timeout, bounds how quickly the relay notices a stop")
	flags.IntVar(&opts.MaxFrame, "max-frame", opts.MaxFrame, "largest frame payload in bytes")
	flags.DurationVar(&opts.ClientTimeout, "client-timeout", opts.ClientTimeout, "per-frame client read/write deadline, 0 disables")
	flags.StringVar(&opts.Device, "device", "", "tap interface name, empty lets the OS choose")
	flags.BoolVar(&opts.Hub, "hub", false, "run without a device and relay between clients only")
	flags.BoolVar(&opts.LinkUp, "link-up", false, "bring the tap link up after creating it (linux)")
	flags.StringVar(&opts.Metrics, "metrics", "", "address to serve prometheus metrics on, e.g. :9100")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.Color, "color", false, "colored log output")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewUninstallCommand())
	rootCmd.AddCommand(NewStartCommand())
	rootCmd.AddCommand(NewStopCommand())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
