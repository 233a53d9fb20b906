package cmd

const DESCRIPTION = `
autopunch clocks you out of a web attendance page once your working hours
are over. It reads the off-duty time from the page, waits for it, solves
the numeric challenge with tesseract and submits, retrying on failure.

Run "autopunch daemon" once per login session to do this every workday.
`

const (
	RunDescription = `The run command performs one clock-out now. By default it
waits until the off-duty time shown on the page and then submits.

Example:
        autopunch run
        autopunch --test
        autopunch --dry-run
        autopunch --get-offtime

`
	DaemonDescription = `The daemon command starts the per-machine scheduler. Only one
daemon may run at a time. From the trigger hour on every weekday it reads
the off-duty time and arms a timer that clocks you out.

Example:
        autopunch daemon

`
	ToggleDescription = `The toggle command enables or disables automatic clock-out.
Without an argument it flips the current state. Enabling also runs a
catch-up check in the background.

Example:
        autopunch toggle
        autopunch toggle off

`
	CheckDescription = `The check command clocks out right away if today's off-duty
time has already passed and nobody else has handled today. Use it at login.

Example:
        autopunch check

`
	SimulateDescription = `The simulate command walks through the five o'clock flow
without submitting: it reads the off-duty time and then runs a dry-run.

Example:
        autopunch simulate

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`
