package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// RunConfig holds the full TOML-driven configuration of one script run.
type RunConfig struct {
	Source      SourceConfig      `toml:"source"`
	Target      TargetConfig      `toml:"target"`
	Script      ScriptConfig      `toml:"script"`
	TypeMapping TypeMappingConfig `toml:"type_mapping"`
	Hooks       HooksConfig       `toml:"hooks"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string

	// Parsed forms of the string settings above, filled by loadConfig.
	objectTypes ObjectTypes
	groupBy     GroupBy
}

// SourceConfig identifies where the schema model is read from.
type SourceConfig struct {
	Type    string `toml:"type"` // mysql|sqlite|postgres|yaml
	DSN     string `toml:"dsn"`  // connection string, or file path for sqlite/yaml
	Schema  string `toml:"schema"`
	Charset string `toml:"charset"` // MySQL connection character set (default: "utf8mb4")
}

// TargetConfig selects the dialect scripts are written for.
type TargetConfig struct {
	Dialect string `toml:"dialect"`
	DSN     string `toml:"dsn"` // only needed with --apply
	Catalog string `toml:"catalog"`
	Schema  string `toml:"schema"`
}

// ScriptConfig controls what the generator emits.
type ScriptConfig struct {
	Mode                 string   `toml:"mode"`     // create|drop|drop_create
	GroupBy              string   `toml:"group_by"` // table|meta_data
	ObjectTypes          []string `toml:"object_types"`
	InlineConstraints    bool     `toml:"inline_constraints"`
	TableTypes           []string `toml:"table_types"`
	OnUnsupportedType    string   `toml:"on_unsupported_type"` // error|skip
	Output               string   `toml:"output"`
	SnakeCaseIdentifiers bool     `toml:"snake_case_identifiers"`
}

// TypeMappingConfig controls how source column types are read into the model.
type TypeMappingConfig struct {
	TinyInt1AsBoolean     bool   `toml:"tinyint1_as_boolean"`
	Binary16AsUUID        bool   `toml:"binary16_as_uuid"`
	DatetimeAsTimestamptz bool   `toml:"datetime_as_timestamptz"`
	WidenUnsignedIntegers bool   `toml:"widen_unsigned_integers"`
	EnumMode              string `toml:"enum_mode"` // text|check
	UnknownAsText         bool   `toml:"unknown_as_text"`
}

// HooksConfig lists SQL files whose statements surround the generated script.
type HooksConfig struct {
	Before []string `toml:"before"`
	After  []string `toml:"after"`
}

const (
	modeCreate     = "create"
	modeDrop       = "drop"
	modeDropCreate = "drop_create"
)

// loadConfig reads a TOML config file and returns a RunConfig with defaults applied.
func loadConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := RunConfig{
		Script: ScriptConfig{
			Mode:              modeCreate,
			GroupBy:           "table",
			InlineConstraints: true,
			TableTypes:        []string{TableTypeTable},
			OnUnsupportedType: "error",
		},
		TypeMapping: defaultTypeMappingConfig(),
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RunConfig) validate() error {
	// Source validation
	if c.Source.Type == "" {
		return fmt.Errorf("source.type is required (must be one of: %s)", strings.Join(inspectorNames(), ", "))
	}
	insp, err := newInspector(c.Source.Type)
	if err != nil {
		return err
	}
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	switch c.Source.Type {
	case "mysql":
		if c.Source.Charset == "" {
			c.Source.Charset = "utf8mb4"
		}
	default:
		if c.Source.Charset != "" {
			return fmt.Errorf("source.charset is a MySQL-only option")
		}
	}
	switch c.Source.Type {
	case "postgres":
		c.Source.Schema = strings.TrimSpace(c.Source.Schema)
		if c.Source.Schema == "" {
			c.Source.Schema = "public"
		}
	default:
		if c.Source.Schema != "" {
			return fmt.Errorf("source.schema is a PostgreSQL-only option")
		}
	}
	if c.Source.Type == "sqlite" || c.Source.Type == "yaml" {
		c.Source.DSN = c.resolveSourcePath(c.Source.DSN)
	}

	switch c.TypeMapping.EnumMode {
	case "text", "check":
	default:
		return fmt.Errorf("type_mapping.enum_mode must be one of: text, check")
	}
	if err := insp.ValidateTypeMapping(c.TypeMapping); err != nil {
		return err
	}

	// Target validation
	if c.Target.Dialect == "" {
		return fmt.Errorf("target.dialect is required (must be one of: %s)", strings.Join(dialectNames(), ", "))
	}
	d, err := newDialect(c.Target.Dialect)
	if err != nil {
		return err
	}
	c.Target.Dialect = d.Name()
	c.Target.Catalog = strings.TrimSpace(c.Target.Catalog)
	c.Target.Schema = strings.TrimSpace(c.Target.Schema)

	// Script validation
	switch c.Script.Mode {
	case modeCreate, modeDrop, modeDropCreate:
	default:
		return fmt.Errorf("script.mode must be one of: create, drop, drop_create")
	}
	if c.groupBy, err = parseGroupBy(c.Script.GroupBy); err != nil {
		return fmt.Errorf("script.group_by: %w", err)
	}
	c.objectTypes = AllObjectTypes
	if c.Script.ObjectTypes != nil {
		if c.objectTypes, err = parseObjectTypes(c.Script.ObjectTypes); err != nil {
			return fmt.Errorf("script.object_types: %w", err)
		}
	}
	if len(c.Script.TableTypes) == 0 {
		return fmt.Errorf("script.table_types must name at least one table type")
	}
	for i, tt := range c.Script.TableTypes {
		c.Script.TableTypes[i] = strings.ToUpper(strings.TrimSpace(tt))
	}
	switch c.Script.OnUnsupportedType {
	case "error", "skip":
	default:
		return fmt.Errorf("script.on_unsupported_type must be one of: error, skip")
	}
	if c.Script.Output != "" {
		c.Script.Output = c.resolvePath(c.Script.Output)
	}
	return nil
}

// scriptContext builds the generator context described by the [target] and
// [script] sections.
func (c *RunConfig) scriptContext(source Dialect) (*ScriptContext, error) {
	target, err := newDialect(c.Target.Dialect)
	if err != nil {
		return nil, err
	}
	sc := NewScriptContext(source, target)
	sc.ObjectTypes = c.objectTypes
	sc.GroupBy = c.groupBy
	sc.InlineConstraints = c.Script.InlineConstraints
	sc.TableTypes = c.Script.TableTypes
	sc.TargetCatalog = c.Target.Catalog
	sc.TargetSchema = c.Target.Schema
	sc.SnakeCaseIdentifiers = c.Script.SnakeCaseIdentifiers
	return sc, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *RunConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// resolveSourcePath resolves a file-based source DSN, leaving SQLite URIs alone.
func (c *RunConfig) resolveSourcePath(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn
	}
	return c.resolvePath(dsn)
}

func defaultTypeMappingConfig() TypeMappingConfig {
	return TypeMappingConfig{
		TinyInt1AsBoolean:     false,
		Binary16AsUUID:        false,
		DatetimeAsTimestamptz: false,
		WidenUnsignedIntegers: true,
		EnumMode:              "text",
		UnknownAsText:         false,
	}
}
