// Command meta runs the Global Barrier Coordinator as a standalone
// process: it persists its epoch watermark to Etcd and drives barrier
// injection against whatever StorageManager, ClusterManager,
// FragmentManager and StreamClientPool are wired into newDeployment.
// Those four are deployment-specific and out of this command's scope; see
// the doc comments of the barrier package's interfaces for their contracts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/tideline-db/tideline/barrier"
)

// Config is the top-level set of flags and environment variables accepted
// by the meta process.
var Config = new(struct {
	Etcd    EtcdConfig    `group:"Etcd" namespace:"etcd" env-namespace:"ETCD"`
	Barrier BarrierConfig `group:"Barrier" namespace:"barrier" env-namespace:"BARRIER"`
	Log     LogConfig     `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

// EtcdConfig configures the client used for EpochStore persistence.
type EtcdConfig struct {
	Endpoint string        `long:"endpoint" env:"ENDPOINT" default:"localhost:2379" description:"Etcd server address"`
	Key      string        `long:"key" env:"KEY" default:"/tideline/meta/in-flight-prev-epoch" description:"Key under which the in-flight prev epoch is persisted"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"Dial timeout"`
}

// BarrierConfig configures the Coordinator itself.
type BarrierConfig struct {
	IntervalMS     int  `long:"interval-ms" env:"INTERVAL_MS" default:"1000" description:"Periodic checkpoint interval, in milliseconds"`
	MaxInFlight    int  `long:"max-in-flight" env:"MAX_IN_FLIGHT" default:"4" description:"Maximum number of barriers in flight at once"`
	EnableRecovery bool `long:"enable-recovery" env:"ENABLE_RECOVERY" description:"Run a recovery pass before injecting the first barrier"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level string `long:"level" env:"LEVEL" default:"info" description:"Logging level (debug, info, warn, error)"`
}

func (cfg LogConfig) apply() error {
	var level, err = log.ParseLevel(cfg.Level)
	if err != nil {
		return errors.WithMessage(err, "parsing log level")
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

type cmdServe struct{}

func (cmd *cmdServe) Execute([]string) error {
	if err := Config.Log.apply(); err != nil {
		return err
	}

	var dialCtx, cancel = context.WithTimeout(context.Background(), Config.Etcd.Timeout)
	defer cancel()

	var etcd, err = clientv3.New(clientv3.Config{
		Endpoints:   []string{Config.Etcd.Endpoint},
		DialTimeout: Config.Etcd.Timeout,
	})
	if err != nil {
		return errors.WithMessage(err, "dialing etcd")
	}
	defer etcd.Close()
	if _, err = etcd.Status(dialCtx, Config.Etcd.Endpoint); err != nil {
		return errors.WithMessage(err, "checking etcd status")
	}

	var epochs = barrier.NewEtcdEpochStore(etcd, Config.Etcd.Key)

	var coordinator = newDeployment(Config.Barrier, epochs)

	var ctx, stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"etcdEndpoint": Config.Etcd.Endpoint,
		"maxInFlight":  Config.Barrier.MaxInFlight,
	}).Info("starting meta barrier coordinator")

	return coordinator.Run(ctx)
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	if _, err := parser.AddCommand("serve", "Run the barrier coordinator",
		"Run the Global Barrier Coordinator until interrupted", &cmdServe{}); err != nil {
		log.WithError(err).Fatal("failed to add serve command")
	}
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}
