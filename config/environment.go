package config

const (
	// Prefix of all environment configurations
	EnvConfigPrefix = "VDNS_"
	// Environment variable with the path of the config file or folder
	ConfigFilePath = "VDNS_CONFIG_FILE"
	// Legacy environment variable with the path of the config file or folder
	ConfigFilePathOld = "CONFIG_FILE"
)
