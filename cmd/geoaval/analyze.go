package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"geoaval/geo"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	rankStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	urlStyle     = lipgloss.NewStyle().Faint(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		target   string
		city     string
		language string
		keywords []string
		autoRun  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an analysis from the terminal",
		Long: `Run the full pipeline for one brand. Without --keyword the model
researches the brand and proposes keywords, which you can refine
interactively before citations are gathered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx := context.Background()
			sessions, closeStore, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			runner, err := buildRunner(cfg, sessions, logger, city)
			if err != nil {
				return err
			}

			fmt.Println(titleStyle.Render("Analyzing " + target))

			start, err := runner.Start(ctx, geo.StartRequest{
				Target:      target,
				Location:    city,
				LanguageTag: language,
				Keywords:    keywords,
			})
			if err != nil {
				return err
			}

			if start.Stage == geo.StageDone {
				renderGraph(start.CitationGraph)
				return nil
			}

			fmt.Println(titleStyle.Render("Proposed keywords"))
			for _, kw := range start.CandidateKeywords {
				fmt.Println("  " + keywordStyle.Render(kw))
			}

			var additional []string
			if !autoRun {
				additional = promptKeywords()
			}

			resume, err := runner.Resume(ctx, geo.ResumeRequest{
				SessionID:          start.SessionID,
				AdditionalKeywords: additional,
			})
			if err != nil {
				return err
			}

			renderGraph(&resume.CitationGraph)

			state, err := runner.Session(ctx, start.SessionID)
			if err == nil && len(state.GatherFailures) > 0 {
				fmt.Println(warnStyle.Render(fmt.Sprintf("%d of the research calls failed, results may be incomplete", len(state.GatherFailures))))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "brand or company to analyze")
	cmd.Flags().StringVar(&city, "city", "", "city to scope the analysis to")
	cmd.Flags().StringVar(&language, "language", "", "prompt language tag, e.g. pt_BR")
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "keyword to research, repeatable; skips keyword discovery")
	cmd.Flags().BoolVarP(&autoRun, "yes", "y", false, "accept proposed keywords without prompting")
	cmd.MarkFlagRequired("target")
	return cmd
}

func promptKeywords() []string {
	fmt.Print("Additional keywords, comma separated (empty to continue): ")
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return nil
	}
	var out []string
	for _, part := range strings.Split(sc.Text(), ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func renderGraph(graph *geo.CitationGraph) {
	if graph == nil || len(graph.Companies) == 0 {
		fmt.Println(warnStyle.Render("No citations found."))
		return
	}

	ranked := make([]geo.Company, len(graph.Companies))
	copy(ranked, graph.Companies)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TimesCited > ranked[j].TimesCited
	})

	fmt.Println(titleStyle.Render("Cited companies"))
	for i, company := range ranked {
		fmt.Printf("%s %s  %s\n",
			rankStyle.Render(fmt.Sprintf("%2d.", i+1)),
			company.Name,
			keywordStyle.Render(fmt.Sprintf("cited %d times", company.TimesCited)),
		)
		for _, u := range company.RelevantURLs {
			fmt.Println("      " + urlStyle.Render(u))
		}
	}
}
