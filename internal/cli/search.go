package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <store> <query>",
	Short: "Query a vector store",
	Long:  `Embed the query with the store's embedder and print the closest chunks.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "number of results (default: search.max_results)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

type searchHit struct {
	Score     float64 `json:"score"`
	Reference string  `json:"reference"`
	Index     string  `json:"index,omitempty"`
	Content   string  `json:"content"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := vectorstore.Load(args[0], a.embedders, vectorstore.WithLogger(a.log.Component("vectorstore")))
	if err != nil {
		return err
	}

	k := searchLimit
	if k <= 0 {
		k = a.cfg.Search.MaxResults
	}

	matches, err := store.SearchText(cmd.Context(), vectorstore.TextObject{Name: "query", Text: args[1]}, k)
	if err != nil {
		return err
	}

	hits := make([]searchHit, len(matches))
	for i, m := range matches {
		hits[i] = searchHit{
			Score:     m.Score,
			Reference: m.Attributes[vectorstore.AttrName],
			Index:     m.Attributes[vectorstore.AttrIndex],
			Content:   m.Attributes[vectorstore.AttrText],
		}
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	for i, h := range hits {
		ref := h.Reference
		if h.Index != "" {
			ref += "#" + h.Index
		}
		fmt.Fprintf(out, "%d. [%.4f] %s\n", i+1, h.Score, ref)
		if h.Content != "" {
			fmt.Fprintf(out, "   %s\n", snippet(h.Content, 200))
		}
	}
	return nil
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
