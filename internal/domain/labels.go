package domain

import (
	"strconv"
	"strings"
)

// LabelPrefix namespaces every container label the orchestrator reads.
const LabelPrefix = "dbwarden."

// Label keys, shared by container labels and their GLOBAL_* defaults.
const (
	LabelEnable               = "enable"
	LabelUsername             = "username"
	LabelPassword             = "password"
	LabelToken                = "token"
	LabelType                 = "type"
	LabelPort                 = "port"
	LabelCompress             = "compress"
	LabelEncryptionPassphrase = "encryption_passphrase"
)

// LabelKeys lists every recognised label key.
var LabelKeys = []string{
	LabelEnable,
	LabelUsername,
	LabelPassword,
	LabelToken,
	LabelType,
	LabelPort,
	LabelCompress,
	LabelEncryptionPassphrase,
}

// LabelValues holds raw, unparsed label values keyed by short key.
type LabelValues map[string]string

// Merge returns a copy of v overlaid with every key present in over.
func (v LabelValues) Merge(over LabelValues) LabelValues {
	merged := make(LabelValues, len(v)+len(over))
	for k, val := range v {
		merged[k] = val
	}
	for k, val := range over {
		merged[k] = val
	}
	return merged
}

// FromContainerLabels strips LabelPrefix from the container labels that
// carry it and drops the rest.
func FromContainerLabels(labels map[string]string) LabelValues {
	values := make(LabelValues)
	for key, val := range labels {
		if short, ok := strings.CutPrefix(key, LabelPrefix); ok {
			values[short] = val
		}
	}
	return values
}

// ParseBool accepts only "true" or "false" in any letter case.
func ParseBool(key, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &ConfigError{Key: key, Value: value, Reason: "must be true or false"}
	}
}

// ParseNonNegative parses a base-10 integer that must be zero or larger.
func ParseNonNegative(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ConfigError{Key: key, Value: value, Reason: "must be an integer"}
	}
	if n < 0 {
		return 0, &ConfigError{Key: key, Value: value, Reason: "must not be negative"}
	}
	return n, nil
}

// DefaultLabels returns the built-in value for every label key.
func DefaultLabels() LabelValues {
	return LabelValues{
		LabelEnable:               "false",
		LabelUsername:             "root",
		LabelPassword:             "",
		LabelToken:                "",
		LabelType:                 EngineAuto,
		LabelPort:                 "auto",
		LabelCompress:             "true",
		LabelEncryptionPassphrase: "",
	}
}
