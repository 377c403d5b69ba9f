// cluster-tx emits a synthetic cluster frame stream for bench testing.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cluster-service/internal/codec"
	"cluster-service/internal/config"
	"cluster-service/internal/logger"
	"cluster-service/internal/transport"
	"cluster-service/internal/types"
)

const speedStep = 64

var (
	cfgFile string
	period  time.Duration
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "cluster-tx",
	Short:         "Send synthetic cluster frames",
	Long:          `Sweeps the speed from 0 to full scale and alternates the turn signal on every wrap.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "/etc/cluster-service/config.yaml",
		"config file, shared with cluster-service")
	rootCmd.Flags().StringP("interface", "i", "", "CAN interface")
	rootCmd.Flags().DurationVarP(&period, "period", "p", 0, "frame period (overrides tx.period_ms)")
	rootCmd.Flags().Uint32("id", 0, "frame identifier")
	rootCmd.Flags().String("log", "", "log level")

	_ = v.BindPFlag("bus.interface", rootCmd.Flags().Lookup("interface"))
	_ = v.BindPFlag("bus.frame_id", rootCmd.Flags().Lookup("id"))
	_ = v.BindPFlag("log_level", rootCmd.Flags().Lookup("log"))
}

// loadConfig reads the shared config. A nonzero period replaces
// tx.period_ms and must be at least 1ms.
func loadConfig(v *viper.Viper, path string, period time.Duration) (config.Config, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return config.Config{}, err
	}
	if period != 0 {
		if period < time.Millisecond {
			return config.Config{}, fmt.Errorf("period must be at least 1ms, got %v", period)
		}
		cfg.Tx.PeriodMs = int(period / time.Millisecond)
	}
	return cfg, nil
}

// sweep produces the next sample of the bench pattern.
type sweep struct {
	sample types.Sample
}

// newSweep starts at standstill with the right signal on.
func newSweep() *sweep {
	return &sweep{sample: types.Sample{RightTurn: true}}
}

func (s *sweep) next() types.Sample {
	out := s.sample

	next := s.sample.Speed + speedStep
	if next > codec.MaxSpeed {
		next = 0
		// alternate sides
		s.sample.LeftTurn, s.sample.RightTurn = s.sample.RightTurn, s.sample.LeftTurn
	}
	s.sample.Speed = next
	return out
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(v, cfgFile, period)
	if err != nil {
		return err
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	l := logger.NewLogger(log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix), level)

	iface, frameID := cfg.Bus.Interface, cfg.Bus.FrameID
	bus, err := transport.OpenSocketCAN(iface)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Tx.Period())
	defer ticker.Stop()

	l.Infof("Sending frame 0x%X on %s every %v", frameID, iface, cfg.Tx.Period())

	sw := newSweep()
	for {
		select {
		case <-ctx.Done():
			l.Infof("Stopped")
			return nil
		case <-ticker.C:
		}

		s := sw.next()
		data, length, extended := codec.Encode(s)
		f := transport.Frame{ID: frameID, Len: length, Extended: extended, Data: data}
		if err := bus.Send(f); err != nil {
			l.Warnf("Send failed: %v", err)
			continue
		}
		l.Debugf("Sent %s", f)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
