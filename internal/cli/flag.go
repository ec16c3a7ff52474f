package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFlagCmd(app *App) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "flag [CODE...]",
		Short: "Render currency flags in the terminal",
		Example: `  bullion-bell flag USD EUR JPY
  bullion-bell flag --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Flags == nil {
				return fmt.Errorf("flag cache unavailable")
			}

			if list || len(args) == 0 {
				codes := app.Flags.Codes()
				if output.IsJSON() {
					return output.JSON(codes)
				}
				output.Println(strings.Join(codes, " "))
				return nil
			}

			var missing []string
			for _, code := range args {
				img, ok := app.Flags.GetContext(cmd.Context(), code)
				if !ok {
					missing = append(missing, strings.ToUpper(code))
					output.Warning("%s: no flag available", strings.ToUpper(code))
					continue
				}
				if output.IsJSON() {
					b := img.Bounds()
					output.JSON(map[string]interface{}{"code": strings.ToUpper(code), "width": b.Dx(), "height": b.Dy()})
					continue
				}
				output.Bold("%s", strings.ToUpper(code))
				if !output.ColorEnabled() {
					output.Dim("(color output disabled)")
					continue
				}
				for _, line := range halfBlocks(img) {
					output.Println(line)
				}
			}

			if len(missing) == len(args) {
				return fmt.Errorf("no flags resolved for %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list every known currency code")
	return cmd
}
