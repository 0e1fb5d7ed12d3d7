package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	promptColor = color.New(color.FgYellow)
	answerColor = color.New(color.FgGreen, color.Bold)
	errorColor  = color.New(color.FgRed)
)

func newReplCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive question loop ('q' to quit)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, app)
		},
	}
}

func runRepl(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	titleColor.Fprintln(out, "\n¡Asistente de análisis iniciado!")
	fmt.Fprintln(out, "Puedes preguntar sobre usuarios, sucursales, actividades, rankings, tendencias y más.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		promptColor.Fprint(out, "\nIngresa tu consulta (o 'q' para salir): ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "q") {
			break
		}
		if query == "" {
			continue
		}
		printAnswer(out, app.Assistant.HandleTurn(cmd.Context(), app.SessionID, query))
	}
	if err := scanner.Err(); err != nil {
		errorColor.Fprintf(out, "Error leyendo la entrada: %v\n", err)
		return err
	}

	titleColor.Fprintln(out, "\n¡Gracias por usar el asistente de análisis!")
	return nil
}

func printAnswer(out io.Writer, reply string) {
	answerColor.Fprintln(out, "\nRespuesta:")
	fmt.Fprintln(out, reply)
}
