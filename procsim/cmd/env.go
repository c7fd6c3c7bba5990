package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const envPrefix = "PROCSIM_"

// loadEnv adds the variables of an env file to the environment. Variables that
// are already set keep their values. A missing file is only an error when the
// user asked for it.
func loadEnv(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("cannot load env file %s: %w", path, err)
}

// applyEnv sets each flag that is not on the command line from its
// environment variable, if there is one.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		name := envName(f.Name)

		value, found := os.LookupEnv(name)
		if !found {
			return
		}

		if setErr := flags.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("invalid %s: %w", name, setErr)
		}
	})

	return err
}

// envName turns a flag such as trace-db into PROCSIM_TRACE_DB.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
