package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkrev/linkrev/internal/packet"
)

var packetCmd = &cobra.Command{
	Use:   "packet",
	Short: "Inspect and scaffold review packets",
}

// packetValidateCmd decodes a packet without loading its files
var packetValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a review packet is well-formed",
	Long: `Decode a review packet and report missing or malformed fields.
The referenced data files are not opened.

Examples:
  linkrev packet validate session.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPacketValidate,
}

// packetInitCmd writes a starter packet
var packetInitCmd = &cobra.Command{
	Use:   "init <file>",
	Short: "Write a commented review packet template",
	Args:  cobra.ExactArgs(1),
	RunE:  runPacketInit,
}

func init() {
	packetCmd.AddCommand(packetValidateCmd)
	packetCmd.AddCommand(packetInitCmd)
}

func runPacketValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read packet: %w", err)
	}

	doc, err := packet.Decode(data)
	if err != nil {
		return fmt.Errorf("packet is invalid: %w", err)
	}

	fmt.Printf("Packet OK: %s\n", args[0])
	fmt.Printf("  Left dataset:  %s (ids: %s)\n", doc.FileL, strings.Join(doc.FileLIDs, ", "))
	fmt.Printf("  Right dataset: %s (ids: %s)\n", doc.FileR, strings.Join(doc.FileRIDs, ", "))
	fmt.Printf("  Comparisons:   %s\n", doc.FileComps)
	fmt.Printf("  Field groups:  %d\n", len(doc.Schema))
	fmt.Printf("  Label choices: %s\n", strings.Join(doc.LabelChoices, ", "))
	if doc.CurrentIndex != nil {
		fmt.Printf("  Saved cursor:  %d\n", *doc.CurrentIndex)
	}
	return nil
}

const packetTemplate = `# linkrev review packet
#
# Paths are resolved relative to the working directory of the process
# that loads the packet. CSV and Parquet files are supported.

# The two datasets being linked and the columns identifying a record
# in each. Multi-column identifiers are given as a list. The two sides'
# id column names must not overlap: the comparison file references both
# sides by column name.
file_L: left.csv
file_L_ids: record_id_l
file_R: right.csv
file_R_ids: record_id_r

# Candidate pairs, one row per pair, carrying both sides' id columns.
# Review columns (rlr_label, rlr_label_ind, rlr_modified, rlr_note)
# are added on first load and preserved across sessions.
file_comps: pairs.csv

# How fields are grouped in the side-by-side view. lvars and rvars
# name columns of the left and right dataset respectively.
var_group_schema:
  - name: name
    lvars: [first_name, last_name]
    rvars: [fname, lname]
  - name: address
    lvars: [street, city]
    rvars: [street, city]

# The labels a reviewer may assign.
label_choices:
  - Match
  - Not a Match
`

func runPacketInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.WriteFile(path, []byte(packetTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
