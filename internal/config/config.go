// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the guard's HCL configuration file: which
// interface to sniff, where the audit database lives, how to reach the
// classifier, and optional remote syslog mirroring.
package config

import (
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// ClassifierConfig configures the external classifier call.
type ClassifierConfig struct {
	Endpoint         string  `hcl:"endpoint"`
	Token            string  `hcl:"token,optional"`
	ConnectTimeoutMS int     `hcl:"connect_timeout_ms,optional"`
	TimeoutMS        int     `hcl:"timeout_ms,optional"`
	Threshold        float64 `hcl:"threshold,optional"`
}

// SyslogBlock is the HCL representation of logging.SyslogConfig.
type SyslogBlock struct {
	Enabled  bool   `hcl:"enabled,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Protocol string `hcl:"protocol,optional"`
	Tag      string `hcl:"tag,optional"`
	Facility int    `hcl:"facility,optional"`
}

// Config is the guard's full runtime configuration.
type Config struct {
	Interface   string           `hcl:"interface"`
	AuditDBPath string           `hcl:"audit_db_path,optional"`
	Classifier  ClassifierConfig `hcl:"classifier,block"`
	Syslog      *SyslogBlock     `hcl:"syslog,block"`
}

// Load reads and decodes the HCL file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AuditDBPath == "" {
		c.AuditDBPath = "gateguard.db"
	}
	if c.Classifier.ConnectTimeoutMS == 0 {
		c.Classifier.ConnectTimeoutMS = 1500
	}
	if c.Classifier.TimeoutMS == 0 {
		c.Classifier.TimeoutMS = 3000
	}
	if c.Classifier.Threshold <= 0 {
		c.Classifier.Threshold = 0.5
	}
}
