package config

import (
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"proxyfinder/internal/shared/types"
)

// LoadIni loads the behavior configuration file into cfg. Missing file
// is not an error: the caller keeps its defaults.
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnvInt(&cfg.PoolConf.MaxRetries, "PROXYFINDER_MAX_RETRIES")
	overrideFromEnvInt(&cfg.PoolConf.TimeoutSeconds, "PROXYFINDER_TIMEOUT")
	overrideFromEnvStr(&cfg.CacheConf.Path, "PROXYFINDER_CACHE_PATH")
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvStr(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
