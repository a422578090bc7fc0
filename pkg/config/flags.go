package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag: commands reference
// flags by registry key rather than hard-coding names, shorthands,
// defaults, and descriptions inline, so the same logical flag (e.g.
// --group) can't drift across the worker and controller subcommands.
type Flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to their Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys, per spec.md §6's Controller/Worker CLI surfaces.
const (
	FlagWorkers  = "workers"
	FlagGroup    = "group"
	FlagStream   = "stream"
	FlagStaleMS  = "stale-ms"
	FlagConsumer = "consumer"
	FlagBlockMS  = "block-ms"
	FlagBatch    = "batch"

	FlagConfigDir = "config-dir"
	FlagDebug     = "debug"
)

// WorkerFlags is the FlagSet shared by the embedding and preference worker
// subcommands.
var WorkerFlags = FlagSet{
	FlagGroup:    {Name: "group", ViperKey: "kv.embedding_group", Description: "consumer group name"},
	FlagConsumer: {Name: "consumer", Description: "stable consumer name (e.g. worker-1)"},
	FlagBlockMS:  {Name: "block", ViperKey: "worker.block_ms", Description: "XREADGROUP block timeout in ms"},
	FlagBatch:    {Name: "batch", ViperKey: "worker.batch", Description: "max entries read per iteration"},
}

// ControllerFlags is the FlagSet for the "controller local" subcommand.
var ControllerFlags = FlagSet{
	FlagWorkers: {Name: "workers", Description: "number of workers to supervise"},
	FlagGroup:   {Name: "group", ViperKey: "kv.embedding_group", Description: "consumer group name"},
	FlagStream:  {Name: "stream", ViperKey: "kv.embedding_queue", Description: "stream name"},
	FlagStaleMS: {Name: "stale-ms", ViperKey: "worker.stale_ms", Description: "idle threshold before auto-claim, in ms"},
}

// AddStringFlag registers a string flag on cmd from fs.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string, defaultVal string) {
	def, ok := fs[key]
	if !ok {
		return
	}
	if def.ViperKey != "" {
		defaultVal = defaultString(def.ViperKey, defaultVal)
	}
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from fs.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int, defaultVal int) {
	def, ok := fs[key]
	if !ok {
		return
	}
	if def.ViperKey != "" {
		defaultVal = defaultInt(def.ViperKey, defaultVal)
	}
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to v, connecting flags
// to viper's flag > env > file > default precedence. Call in PreRunE.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok || def.ViperKey == "" {
			continue
		}
		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}
		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey, fallback string) string {
	v := viper.New()
	setViperDefaults(v)
	if !v.IsSet(viperKey) {
		return fallback
	}
	return v.GetString(viperKey)
}

func defaultInt(viperKey string, fallback int) int {
	v := viper.New()
	setViperDefaults(v)
	if !v.IsSet(viperKey) {
		return fallback
	}
	return v.GetInt(viperKey)
}
