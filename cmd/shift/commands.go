package main

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tapcraft-io/shift/internal/exec"
	"github.com/tapcraft-io/shift/internal/history"
	"github.com/tapcraft-io/shift/internal/openshift"
	"github.com/tapcraft-io/shift/internal/tui"
	"github.com/tapcraft-io/shift/pkg/types"
)

func (a *app) projectsCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects visible to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			projects, err := client.Projects(cmd.Context(), refresh)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(projects))
			for name := range projects {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, projects[name].Phase())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache")
	return cmd
}

func (a *app) getCommand() *cobra.Command {
	var output, jq string
	cmd := &cobra.Command{
		Use:   "get KIND [NAME]",
		Short: "Print objects of a kind in the current project",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := openshift.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q", args[0])
			}
			p, err := newPrinter(output, jq)
			if err != nil {
				return err
			}

			var objects map[string]openshift.Resource
			if kind == openshift.KindProject {
				client, err := a.connect(cmd.Context())
				if err != nil {
					return err
				}
				projects, err := client.Projects(cmd.Context(), false)
				if err != nil {
					return err
				}
				objects = make(map[string]openshift.Resource, len(projects))
				for name, project := range projects {
					objects[name] = project
				}
			} else {
				project, err := a.currentProject(cmd.Context())
				if err != nil {
					return err
				}
				objects, err = project.Resources(cmd.Context(), kind, false)
				if err != nil {
					return err
				}
			}

			if len(args) == 2 {
				obj, ok := objects[args[1]]
				if !ok {
					return fmt.Errorf("%s %q not found", kind.CommandName(), args[1])
				}
				objects = map[string]openshift.Resource{args[1]: obj}
			}
			return p.Print(cmd.OutOrStdout(), objects)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "name", "output format: name, json or yaml")
	cmd.Flags().StringVar(&jq, "jq", "", "jq expression applied to each object")
	return cmd
}

// deploymentConfig looks up a deployment config in the current project
func (a *app) deploymentConfig(cmd *cobra.Command, name string) (*openshift.DeploymentConfig, error) {
	project, err := a.currentProject(cmd.Context())
	if err != nil {
		return nil, err
	}
	dcs, err := project.DeploymentConfigs(cmd.Context(), false)
	if err != nil {
		return nil, err
	}
	dc, ok := dcs[name]
	if !ok {
		return nil, fmt.Errorf("deploymentconfig %q not found in %s", name, project.Name())
	}
	return dc, nil
}

func (a *app) scaleCommand() *cobra.Command {
	var replicas int64
	cmd := &cobra.Command{
		Use:   "scale DC",
		Short: "Scale a deployment config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := a.deploymentConfig(cmd, args[0])
			if err != nil {
				return err
			}
			return dc.Scale(cmd.Context(), replicas, a.waitOptions())
		},
	}
	cmd.Flags().Int64Var(&replicas, "replicas", 1, "desired replica count")
	a.addWaitFlags(cmd)
	return cmd
}

func (a *app) rolloutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollout DC",
		Short: "Start a new deployment of a deployment config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := a.deploymentConfig(cmd, args[0])
			if err != nil {
				return err
			}
			return dc.StartDeployment(cmd.Context(), a.waitOptions())
		},
	}
	a.addWaitFlags(cmd)
	return cmd
}

func (a *app) waitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait [DC]",
		Short: "Wait until no deployment is running",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.waitOptions()
			opts.Block = true
			if len(args) == 1 {
				dc, err := a.deploymentConfig(cmd, args[0])
				if err != nil {
					return err
				}
				return dc.WaitForDeployments(cmd.Context(), opts)
			}
			project, err := a.currentProject(cmd.Context())
			if err != nil {
				return err
			}
			return project.WaitForDeployments(cmd.Context(), opts)
		},
	}
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "wait timeout (default from config)")
	return cmd
}

func (a *app) envCommand() *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "env DC [KEY=VALUE | KEY-]...",
		Short: "Show or change environment variables of a deployment config",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := a.deploymentConfig(cmd, args[0])
			if err != nil {
				return err
			}

			if len(args) == 1 {
				env, err := dc.EnvVariables(cmd.Context(), container)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(env))
				for k := range env {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, env[k])
				}
				return nil
			}

			changes, err := parseEnv(args[1:])
			if err != nil {
				return err
			}
			return dc.SetEnvVariables(cmd.Context(), container, changes, a.waitOptions())
		},
	}
	cmd.Flags().StringVarP(&container, "container", "c", "", "container name (default: the only or first container)")
	a.addWaitFlags(cmd)
	return cmd
}

// parseEnv turns KEY=VALUE and KEY- arguments into set/unset changes
func parseEnv(args []string) (map[string]*string, error) {
	changes := make(map[string]*string, len(args))
	for _, arg := range args {
		if key, value, ok := strings.Cut(arg, "="); ok {
			if key == "" {
				return nil, fmt.Errorf("invalid environment assignment %q", arg)
			}
			changes[key] = &value
			continue
		}
		if key, ok := strings.CutSuffix(arg, "-"); ok && key != "" {
			changes[key] = nil
			continue
		}
		return nil, fmt.Errorf("invalid environment argument %q, expected KEY=VALUE or KEY-", arg)
	}
	return changes, nil
}

func (a *app) logsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs POD",
		Short: "Print the logs of a pod",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.currentProject(cmd.Context())
			if err != nil {
				return err
			}
			pods, err := project.Pods(cmd.Context(), false)
			if err != nil {
				return err
			}
			pod, ok := pods[args[0]]
			if !ok {
				return fmt.Errorf("pod %q not found in %s", args[0], project.Name())
			}
			logs, err := pod.Logs(cmd.Context(), false)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), logs)
			return nil
		},
	}
}

func (a *app) newProjectCommand() *cobra.Command {
	var displayName, description string
	cmd := &cobra.Command{
		Use:   "new-project NAME",
		Short: "Create a project and wait until it is listed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			opts := exec.Options{}
			if displayName != "" {
				opts["display-name"] = displayName
			}
			if description != "" {
				opts["description"] = description
			}
			project, err := client.CreateProject(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project/%s created\n", project.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "project display name")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	return cmd
}

func (a *app) deleteProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-project NAME",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.project = args[0]
			project, err := a.currentProject(cmd.Context())
			if err != nil {
				return err
			}
			return project.Delete(cmd.Context(), a.waitOptions())
		},
	}
	a.addWaitFlags(cmd)
	return cmd
}

func (a *app) newAppCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "new-app PATH",
		Short: "Create an application with oc new-app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.currentProject(cmd.Context())
			if err != nil {
				return err
			}
			return project.NewApp(cmd.Context(), source, args[0], a.waitOptions(), nil)
		},
	}
	cmd.Flags().StringVar(&source, "source", "code", "new-app source flag: code, image, template, ...")
	a.addWaitFlags(cmd)
	return cmd
}

func (a *app) routesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes SERVICE",
		Short: "Print the addresses of the routes exposing a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.currentProject(cmd.Context())
			if err != nil {
				return err
			}
			services, err := project.Services(cmd.Context(), false)
			if err != nil {
				return err
			}
			svc, ok := services[args[0]]
			if !ok {
				return fmt.Errorf("service %q not found in %s", args[0], project.Name())
			}
			routes, err := svc.Routes(cmd.Context(), false)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(routes))
			for name := range routes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, routes[name].Address())
			}
			return nil
		},
	}
}

func (a *app) ocCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "oc -- ARGS...",
		Short: "Run an oc command with the session's credentials",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := exec.NewParser().Parse(strings.Join(args, " "))
			if !parsed.IsValid {
				return fmt.Errorf("invalid command: %s", strings.Join(parsed.Errors, ", "))
			}
			if exec.IsDestructive(parsed) && !yes && !confirm(cmd, parsed.Raw) {
				return fmt.Errorf("aborted")
			}

			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			c := exec.Command{Verb: args[0], Args: args[1:]}
			if parsed.Namespace == "" && a.project != "" {
				c = c.With(exec.Options{"namespace": a.project})
			}
			out, err := client.Output(cmd.Context(), c)
			fmt.Fprint(cmd.OutOrStdout(), out)
			// The command may have changed anything
			client.Invalidate()
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before destructive commands")
	return cmd
}

// confirm asks on stdin before running a destructive command
func confirm(cmd *cobra.Command, command string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "Run destructive command %q? [y/N] ", command)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *app) historyCommand() *cobra.Command {
	var (
		search     string
		okOnly     bool
		allServers bool
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the command journal of the current server and project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hist, err := a.journal()
			if err != nil {
				return err
			}

			server := a.cfg.Server
			if allServers {
				server = ""
			}
			var entries []types.HistoryEntry
			if search != "" {
				entries = history.FilterEntries(hist.Search(search), server, a.project, okOnly)
			} else {
				entries = hist.Filter(server, a.project, okOnly)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			for _, e := range entries {
				status := "ok"
				if !e.Success {
					status = "failed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), status, scope(e.Server, e.Namespace), e.Command)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "fuzzy search query")
	cmd.Flags().BoolVar(&okOnly, "ok", false, "only successful commands")
	cmd.Flags().BoolVar(&allServers, "all-servers", false, "include commands run against other servers")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum entries to print")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "delete INDEX",
			Short: "Remove one entry, 0 being the newest",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				hist, err := a.journal()
				if err != nil {
					return err
				}
				index, err := strconv.Atoi(args[0])
				if err != nil || index < 0 || index >= hist.Len() {
					return fmt.Errorf("invalid history index %q", args[0])
				}
				hist.Delete(index)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every entry",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				hist, err := a.journal()
				if err != nil {
					return err
				}
				hist.Clear()
				return nil
			},
		},
	)
	return cmd
}

func (a *app) journal() (*history.History, error) {
	if a.hist == nil {
		return nil, fmt.Errorf("history is unavailable")
	}
	return a.hist, nil
}

func scope(server, namespace string) string {
	if namespace == "" {
		return server
	}
	return server + "/" + namespace
}

func (a *app) configCommand() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, optionally saving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := *a.cfg
			out.Token, out.Password = "", ""
			data, err := yaml.Marshal(&out)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))

			if !save {
				return nil
			}
			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("save %s: %w", a.cfg.ConfigFile, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved to %s\n", a.cfg.ConfigFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the configuration file (credentials are never written)")
	return cmd
}

func (a *app) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Browse the current project interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := a.currentProject(cmd.Context())
			if err != nil {
				return err
			}

			p := tea.NewProgram(
				tui.NewModel(project, a.client.Server(), a.hist),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running dashboard: %w", err)
			}
			return nil
		},
	}
}
