// Package cli implements the ftest command-line interface.
//
// Each command is a package-level cobra.Command registered from an init
// function. Commands load .ftest.yaml through a Session, which carries the
// validated config, the SSH runner for the cluster and the executor for
// commands run on this machine.
//
// # Command Structure
//
//	ftest run <nodeset> <command>   - Run a command on a node set
//	ftest list [patterns]           - List the registered tests
//	ftest test <patterns>           - Run tests through the suite executor
//	ftest interop upgrade-downgrade - Upgrade and downgrade the cluster
//	ftest interop agent-server      - Mix agent and server versions
//	ftest space verify              - Check df accounting for pools
//	ftest cores pattern|process     - Locate and post-process core files
//	ftest tags lint|pragmas         - Check test tags, recommend pragmas
//	ftest doctor                    - Diagnose the local and cluster setup
//	ftest unlock                    - Remove a stale cluster lock
//
// The interop and space commands are shortcuts for 'ftest test' with a
// fixed test ID, so they share its lock handling and summary.
//
// # Exit Status
//
// Commands that print their own report, such as a failed remote command or
// test, return ExitError so Execute exits non-zero without printing the
// error again. Any other error is printed once by Execute.
package cli
