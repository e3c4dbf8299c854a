/*
Copyright © 2021 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitzhangjie/pwait/internal/log"
	"github.com/hitzhangjie/pwait/pkg/capability"
	"github.com/hitzhangjie/pwait/pkg/target"
)

// ErrUsage marks invocation errors: the tool exits with 2 and no
// privileged operation is ever attempted.
var ErrUsage = errors.New("usage error")

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pwait <pid>",
	Short: "wait for a process you didn't spawn and report its exit code",
	Long: `pwait attaches to an already-running process with ptrace, waits until
it terminates and reports its exit code, e.g.

	pwait 1234

The target is only observed: it is not stopped, stepped or inspected.
Waiting for an unrelated process needs CAP_SYS_PTRACE (or root).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.Wrap(ErrUsage, "expects exactly one pid argument")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parsePID(args[0])
		if err != nil {
			return err
		}
		return run(pid)
	},
}

// run drives the whole supervision flow:
// negotiate capability -> attach -> wait for exit event -> extract status.
// Every failure is fatal where it happens, nothing is retried.
func run(pid int) error {
	if err := capability.Ensure(); err != nil {
		return err
	}

	tracee, err := target.New(pid)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}
	defer tracee.StopPtrace()

	// arm the interruption handler before the trace relationship exists,
	// so no window leaves the tracee traced by an interrupted pwait
	detacher := target.NewDetacher(pid)
	detacher.Install()
	defer detacher.Uninstall()

	if err := tracee.Attach(); err != nil {
		log.Errorf("%v", err)
		return err
	}

	if err := tracee.WaitForExit(); err != nil {
		log.Errorf("%v", err)
		return err
	}
	log.Debugf("wait successful")

	// the tracee has exited, a late detach request would be pointless
	detacher.Uninstall()

	code, err := tracee.ExitStatus()
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	// release the tracee so it can finish dying without waiting for us
	if err := tracee.Detach(); err != nil {
		log.Warnf("%v", err)
	}

	fmt.Printf("Process %d exited with code %d\n", pid, code)
	return nil
}

// parsePID converts the positional argument into a validated pid.
// strconv with base 0 accepts base-10 plus the standard numeric
// prefixes, matching strtol(.., 0).
func parsePID(s string) (int, error) {
	pid, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrUsage, "first argument must be a numeric PID, got %q", s)
	}
	if pid < 1 {
		return 0, errors.Wrapf(ErrUsage, "invalid process ID %d passed as first argument", pid)
	}
	return int(pid), nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). Exit codes: 0 success,
// 1 operational failure, 2 usage error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s", err, rootCmd.UsageString())
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pwait.yaml)")
}

// initConfig reads in config file if set. The only recognized setting is
// log-level; nothing about the trace behavior is configurable.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".pwait" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".pwait")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	level := slog.LevelDebug
	if s := viper.GetString("log-level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			fmt.Fprintf(os.Stderr, "unknown log-level %q\n", s)
		}
	}
	log.Init(log.Options{Level: level})
}
