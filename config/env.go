package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/subosito/gotenv"
)

// LoadEnvFile sets environment variables from a dotenv file.
// Variables already in the environment are left alone.
func LoadEnvFile(filename string) error {
	if filename == "" {
		return nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "env file")
	}
	defer f.Close()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return errors.Wrapf(err, "parse env file %s", filename)
	}
	for k, v := range env {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return errors.Wrap(err, "env file")
		}
	}
	return nil
}
