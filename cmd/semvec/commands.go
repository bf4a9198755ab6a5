package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/semvec/engine"
	"github.com/viant/semvec/registry"
	"github.com/viant/semvec/semantic"
	"go.uber.org/zap"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the configuration file and create the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := engine.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized %s (config %s)\n", cfg.DSN, configPath)
		return nil
	},
}

var rehydrateCmd = &cobra.Command{
	Use:   "rehydrate",
	Short: "Drop temporary atoms, rebuild indexes and print domain stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, closeSrv, err := openService(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer closeSrv()
		stats, err := srv.Stats(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range stats {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\trows=%d\tindexed=%d\n", s.ID, s.Name, s.Rows, s.Indexed)
		}
		return nil
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List registered domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := engine.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		entries, err := registry.New(db, registry.Domains).All(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", e.ID, e.Name)
		}
		return nil
	},
}

var setFlags struct {
	domain, document, text, vector string
	item                           int
	mtime                          int64
	temporary                      bool
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Write one atom with an explicit vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		vec, err := parseVector(setFlags.vector)
		if err != nil {
			return err
		}
		var mtime *int64
		if cmd.Flags().Changed("mtime") {
			mtime = &setFlags.mtime
		}
		srv, closeSrv, err := openService(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeSrv()
		id, err := srv.SetAtom(cmd.Context(), setFlags.domain, setFlags.document, setFlags.item, setFlags.text, vec, mtime, setFlags.temporary)
		var warning *semantic.DesyncWarning
		if err != nil && !errors.As(err, &warning) {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var unsetFlags struct {
	domain, document string
	item             int
}

var unsetCmd = &cobra.Command{
	Use:   "unset",
	Short: "Delete atoms matching a domain / document / item mask",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, closeSrv, err := openService(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeSrv()
		mask, err := srv.Mask(cmd.Context(), unsetFlags.domain, unsetFlags.document, unsetFlags.item)
		if err != nil {
			return err
		}
		n, err := srv.Unset(cmd.Context(), mask)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", n)
		return nil
	},
}

var searchFlags struct {
	domain, vector string
	k              int
	documents      []string
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rebuild indexes and search a domain with a query vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := parseVector(searchFlags.vector)
		if err != nil {
			return err
		}
		srv, closeSrv, err := openService(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer closeSrv()
		hits, err := srv.SearchHits(cmd.Context(), searchFlags.domain, query, searchFlags.k, searchFlags.documents)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\n", h.ID, h.Score)
		}
		logger.Debug("search done", zap.Int("hits", len(hits)))
		return nil
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a domain exactly in SQL with vec_cosine, bypassing the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := parseVector(searchFlags.vector)
		if err != nil {
			return err
		}
		srv, closeSrv, err := openService(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer closeSrv()
		ranked, err := srv.Rank(cmd.Context(), searchFlags.domain, query, searchFlags.k)
		if err != nil {
			return err
		}
		for _, r := range ranked {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\n", r.ID, r.Score)
		}
		return nil
	},
}

func init() {
	setCmd.Flags().StringVar(&setFlags.domain, "domain", "", "Domain name (required)")
	setCmd.Flags().StringVar(&setFlags.document, "document", "", "Document key (required)")
	setCmd.Flags().IntVar(&setFlags.item, "item", 0, "Item index within the document, from 0")
	setCmd.Flags().StringVar(&setFlags.text, "text", "", "Atom text (required)")
	setCmd.Flags().StringVar(&setFlags.vector, "vector", "", "Comma separated vector (required)")
	setCmd.Flags().Int64Var(&setFlags.mtime, "mtime", 0, "Modification time")
	setCmd.Flags().BoolVar(&setFlags.temporary, "temporary", false, "Drop the atom on the next rehydrate")
	_ = setCmd.MarkFlagRequired("domain")
	_ = setCmd.MarkFlagRequired("document")
	_ = setCmd.MarkFlagRequired("text")
	_ = setCmd.MarkFlagRequired("vector")

	unsetCmd.Flags().StringVar(&unsetFlags.domain, "domain", "", "Domain name (empty matches all)")
	unsetCmd.Flags().StringVar(&unsetFlags.document, "document", "", "Document key (empty matches all)")
	unsetCmd.Flags().IntVar(&unsetFlags.item, "item", -1, "Item index from 0 (negative matches all)")

	for _, c := range []*cobra.Command{searchCmd, rankCmd} {
		c.Flags().StringVar(&searchFlags.domain, "domain", "", "Domain name (required)")
		c.Flags().StringVar(&searchFlags.vector, "vector", "", "Comma separated query vector (required)")
		c.Flags().IntVar(&searchFlags.k, "k", 0, "Number of results (default from config)")
		_ = c.MarkFlagRequired("domain")
		_ = c.MarkFlagRequired("vector")
	}
	searchCmd.Flags().StringSliceVar(&searchFlags.documents, "documents", nil, "Restrict to these document keys")
}
