package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkgshield/pkgshield/pkg/rules"
)

var showRuleBodies bool

// getRulesCmd represents the get rules command
var getRulesCmd = &cobra.Command{
	Use:     "rules",
	Aliases: []string{"r"},
	Short:   "Fetch the current YARA rules",
	Long: `Fetches the rule bundle from the configured repository and lists
the rules it contains.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		service := rules.NewService(rules.Config{
			Token:     viper.GetString("rules.github_token"),
			RepoOwner: viper.GetString("rules.repo_owner"),
			RepoName:  viper.GetString("rules.repo_name"),
			Branch:    viper.GetString("rules.branch"),
		}, nil)

		snapshot, err := service.Fetch(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("commit: %s\n", snapshot.Commit)
		names := make([]string, 0, len(snapshot.Rules))
		for name := range snapshot.Rules {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if showRuleBodies {
				fmt.Printf("\n--- %s ---\n%s\n", name, snapshot.Rules[name])
			} else {
				fmt.Println(name)
			}
		}
		return nil
	},
}

func init() {
	getCmd.AddCommand(getRulesCmd)
	getRulesCmd.Flags().BoolVar(&showRuleBodies, "bodies", false, "Print rule bodies as well as names")
}
