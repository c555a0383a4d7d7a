package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/sigchain/pkg/sigchain"
	"github.com/randalmurphal/sigchain/pkg/sigchain/builtin"
	"github.com/randalmurphal/sigchain/pkg/sigchain/registry"
	"github.com/randalmurphal/sigchain/pkg/sigchain/store"
)

// version is set at build time via -ldflags.
var version = "dev"

// Setting keys. Each can come from a flag, a SIGCHAIN_ environment variable
// or the --config file, in that order of precedence.
const (
	keyFile        = "file"
	keyDB          = "db"
	keyLogLevel    = "log_level"
	keyLogFormat   = "log_format"
	keyFirstNodeID = "first_node_id"
)

// cli is the state shared by every command of one invocation.
type cli struct {
	v        *viper.Viper
	cfgFile  string
	logger   *slog.Logger
	registry *registry.Registry
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), registry: builtin.NewRegistry()}

	root := &cobra.Command{
		Use:   "sigchain",
		Short: "Edit signal-chain documents",
		Long: "sigchain edits signal-chain documents: chains of processors with\n" +
			"splitters and mergers, saved as YAML or kept in a SQLite store.",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.init,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.cfgFile, "config", "", "settings file (yaml or json)")
	f.StringP("file", "f", "chain.yaml", "chain document to read and edit")
	f.String("db", "sigchain.db", "SQLite document store")
	f.String("log-level", "warn", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")
	f.Int64("first-node-id", int64(sigchain.DefaultFirstNodeID), "first node ID handed out")

	for key, flag := range map[string]string{
		keyFile:        "file",
		keyDB:          "db",
		keyLogLevel:    "log-level",
		keyLogFormat:   "log-format",
		keyFirstNodeID: "first-node-id",
	} {
		_ = c.v.BindPFlag(key, f.Lookup(flag))
	}
	c.v.SetEnvPrefix("SIGCHAIN")
	c.v.AutomaticEnv()

	root.AddCommand(
		newShowCmd(c),
		newValidateCmd(c),
		newCatalogCmd(c),
		newAddCmd(c),
		newChainCmd(c),
		newRemoveCmd(c),
		newMoveCmd(c),
		newSwitchCmd(c),
		newConnectCmd(c),
		newRenameCmd(c),
		newSetCmd(c),
		newSelectCmd(c),
		newDuplicateCmd(c),
		newClearCmd(c),
		newImportCmd(c),
		newExportNodeCmd(c),
		newImportNodeCmd(c),
		newSaveCmd(c),
		newLoadCmd(c),
		newListCmd(c),
		newRevisionsCmd(c),
		newDeleteCmd(c),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command, _ []string) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	level, err := parseLevel(c.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	c.logger = initLogging(level, c.v.GetString(keyLogFormat), cmd.ErrOrStderr(), "cli")
	return nil
}

func (c *cli) path() string { return c.v.GetString(keyFile) }

func (c *cli) newEditor() *sigchain.Editor {
	return sigchain.NewEditor(c.registry,
		sigchain.WithLogger(c.logger),
		sigchain.WithFirstNodeID(sigchain.NodeID(c.v.GetInt64(keyFirstNodeID))),
	)
}

// open reads the working document. A missing file gives an empty editor.
func (c *cli) open() (*sigchain.Editor, error) {
	ed := c.newEditor()
	path := c.path()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("starting new document", slog.String("path", path))
		return ed, nil
	}
	if err := statusErr(ed.LoadState(path)); err != nil {
		return nil, err
	}
	return ed, nil
}

// edit opens the working document, applies fn and writes the result back.
// Nothing is written if fn fails.
func (c *cli) edit(fn func(ed *sigchain.Editor) error) error {
	ed, err := c.open()
	if err != nil {
		return err
	}
	if err := fn(ed); err != nil {
		return err
	}
	return statusErr(ed.SaveState(c.path()))
}

func (c *cli) openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(c.v.GetString(keyDB))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// descriptor resolves a processor name against the built-in catalog.
func (c *cli) descriptor(name, library, ver string) (sigchain.Descriptor, error) {
	d := sigchain.Descriptor{Name: name, Library: library, Version: ver}
	e, ok := c.registry.Lookup(d)
	if !ok {
		return d, fmt.Errorf("unknown processor %q (see 'sigchain catalog')", name)
	}
	return e.Descriptor, nil
}

func parseNodeID(s string) (sigchain.NodeID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return sigchain.NoNode, fmt.Errorf("invalid node ID %q", s)
	}
	return sigchain.NodeID(id), nil
}

func parseNodeIDs(args []string) ([]sigchain.NodeID, error) {
	ids := make([]sigchain.NodeID, 0, len(args))
	for _, a := range args {
		id, err := parseNodeID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// statusErr turns a status string from the file surface into an error.
func statusErr(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
