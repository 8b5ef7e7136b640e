package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/api"
	"github.com/bryanchriswhite/deskpane/internal/config"
	"github.com/bryanchriswhite/deskpane/internal/wm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var windowsCmd = &cobra.Command{
	Use:     "windows",
	Aliases: []string{"win"},
	Short:   "Control the windows of a running server",
	Long: `Open, list, focus and close windows on a running deskpane server.

These commands talk to the REST API of "deskpane serve".`,
}

var windowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open windows",
	Example: `  # List windows in table format (default)
  deskpane windows list

  # List windows in JSON format
  deskpane windows list --format json`,
	Args: cobra.NoArgs,
	RunE: runWindowsList,
}

var windowsOpenCmd = &cobra.Command{
	Use:   "open COMPONENT",
	Short: "Open a window",
	Example: `  # Open a window with the default options
  deskpane windows open notes

  # Open a fixed-size window at a position
  deskpane windows open clock --option resizable=false --option open_in_center=false \
    --option 'position={"x": 40, "y": 40}'

  # Pass props to the component
  deskpane windows open notes --props '{"text": "hello"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runWindowsOpen,
}

var windowsCloseCmd = &cobra.Command{
	Use:   "close ID",
	Short: "Close a window",
	Args:  cobra.ExactArgs(1),
	RunE:  runWindowsClose,
}

var windowsActivateCmd = &cobra.Command{
	Use:   "activate ID",
	Short: "Focus a window",
	Args:  cobra.ExactArgs(1),
	RunE:  runWindowsActivate,
}

var (
	serverURL     string
	windowsFormat string
	openOptions   []string
	openProps     string
)

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.AddCommand(windowsListCmd)
	windowsCmd.AddCommand(windowsOpenCmd)
	windowsCmd.AddCommand(windowsCloseCmd)
	windowsCmd.AddCommand(windowsActivateCmd)

	windowsCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default is http://localhost:<server_port>)")
	windowsListCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table or json)")
	windowsOpenCmd.Flags().StringArrayVarP(&openOptions, "option", "o", nil, "window option as key=value, value parsed as JSON when possible")
	windowsOpenCmd.Flags().StringVar(&openProps, "props", "", "component props as JSON")
}

// apiClient is a thin REST client for a running server.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient() (*apiClient, error) {
	base := serverURL
	if base == "" {
		port := viper.GetInt("server_port")
		if port <= 0 {
			configMgr, err := config.NewManager(GetConfigFile())
			if err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
			port = configMgr.Get().ServerPort
		}
		base = fmt.Sprintf("http://localhost:%d", port)
	}
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("is deskpane serve running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseWindowID(arg string) (wm.ID, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return wm.NoWindow, fmt.Errorf("invalid window id: %s", arg)
	}
	return wm.ID(id), nil
}

// parseOptions turns key=value pairs into an options map. Values that are
// valid JSON keep their type; anything else is a string.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q (use key=value)", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		opts[key] = v
	}
	return opts, nil
}

func runWindowsList(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var desk api.DesktopView
	if err := client.do("GET", "/api/windows", nil, &desk); err != nil {
		return err
	}

	switch windowsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(desk)
	case "table":
		return printWindowsTable(os.Stdout, desk)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", windowsFormat)
	}
}

func printWindowsTable(out io.Writer, desk api.DesktopView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTITLE\tSTATE\tGEOMETRY\tON TOP")
	fmt.Fprintln(w, "--\t-----\t-----\t--------\t------")

	for _, win := range desk.Windows {
		geometry := "-"
		if win.Rect != nil {
			geometry = fmt.Sprintf("%dx%d at (%d, %d)", win.Rect.Width, win.Rect.Height, win.Rect.X, win.Rect.Y)
		}
		onTop := "No"
		if win.Options.AlwaysOnTop {
			onTop = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", win.ID, win.Options.Title, win.State, geometry, onTop)
	}

	return nil
}

func runWindowsOpen(cmd *cobra.Command, args []string) error {
	opts, err := parseOptions(openOptions)
	if err != nil {
		return err
	}

	req := api.OpenRequest{Component: args[0], Options: opts}
	if openProps != "" {
		if err := json.Unmarshal([]byte(openProps), &req.Props); err != nil {
			return fmt.Errorf("invalid props: %w", err)
		}
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var resp api.OpenResponse
	if err := client.do("POST", "/api/windows", req, &resp); err != nil {
		return err
	}
	fmt.Println(resp.ID)
	return nil
}

func runWindowsClose(cmd *cobra.Command, args []string) error {
	id, err := parseWindowID(args[0])
	if err != nil {
		return err
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	return client.do("DELETE", fmt.Sprintf("/api/windows/%d", id), nil, nil)
}

func runWindowsActivate(cmd *cobra.Command, args []string) error {
	id, err := parseWindowID(args[0])
	if err != nil {
		return err
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	return client.do("POST", fmt.Sprintf("/api/windows/%d/activate", id), nil, nil)
}
