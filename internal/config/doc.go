// Package config defines the configuration model for the driver store and
// install pipeline.
//
// The [Config] struct is the canonical representation of a deployment's
// desired state: where the driver store lives, how payloads are fetched,
// which OS backend binds queues, and the catalog of drivers and devices
// installs are run against. It is produced by loading a YAML file or by the
// interactive init wizard.
package config
