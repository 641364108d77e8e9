package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/skillindex/pkg/descriptor"
	"github.com/matzehuels/skillindex/pkg/discover"
	"github.com/matzehuels/skillindex/pkg/integrations/github"
)

// validateCommand creates the validate command for a single descriptor.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		branch    string
		strict    bool
		minLength int
		pick      bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "validate <owner/repo[/path]>",
		Short: "Validate one SKILL.md descriptor and print the gate report",
		Example: `  skillindex validate anthropics/skills/pdf
  skillindex validate jane/tester --strict=false
  skillindex validate anthropics/skills --pick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, repo, dir, err := github.ParsePackageRef(args[0])
			if err != nil {
				return err
			}

			d, err := c.openDeps(ctx, depOptions{noCache: noCache})
			if err != nil {
				return err
			}
			defer d.Close()

			if branch == "" {
				spinner := newSpinnerWithContext(ctx, "Fetching "+owner+"/"+repo+"...")
				spinner.Start()
				meta, err := d.github.GetRepository(ctx, owner, repo, false)
				spinner.Stop()
				if err != nil {
					return err
				}
				branch = meta.DefaultBranch
			}

			if pick {
				dir, err = c.pickDirectory(cmd, d.github, owner, repo, dir)
				if err != nil || dir == "-" {
					return err
				}
			}

			v := descriptor.NewValidator(d.github, descriptor.Options{MinContentLength: minLength, Strict: strict})
			spinner := newSpinnerWithContext(ctx, "Validating...")
			spinner.Start()
			res := v.Validate(ctx, owner, repo, branch, dir)
			spinner.Stop()

			target := discover.TreeURL(owner, repo, branch, dir)
			if dir == "" {
				target = discover.RepoURL(owner, repo)
			}
			printValidation(c.stdout(cmd), target, res)
			if !res.Valid {
				return fmt.Errorf("%s/%s: validation failed", owner, repo)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "branch to read (default: repository default branch)")
	cmd.Flags().BoolVar(&strict, "strict", true, "require frontmatter with name and description")
	cmd.Flags().IntVar(&minLength, "min-length", descriptor.DefaultMinContentLength, "minimum SKILL.md length in characters")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a package directory interactively")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the repository metadata cache")

	return cmd
}

// pickDirectory lists the directories under base and lets the user choose
// one. It returns "-" when the picker is dismissed.
func (c *CLI) pickDirectory(cmd *cobra.Command, gh *github.Client, owner, repo, base string) (string, error) {
	items, err := gh.ListContents(cmd.Context(), owner, repo, base)
	if err != nil {
		return "", err
	}
	model := NewDirListModel(owner+"/"+repo, base, items)
	if len(model.Dirs) == 0 {
		return base, nil
	}

	final, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return "", err
	}
	m := final.(DirListModel)
	if m.Selected == nil {
		printInfo(c.stdout(cmd), "Nothing selected")
		return "-", nil
	}
	return *m.Selected, nil
}
