package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List stored calibration profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		profiles, err := st.Profiles().List()
		if err != nil {
			return err
		}

		if len(profiles) == 0 {
			fmt.Println("No calibration profiles found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tGEOMETRY\tOFFSET\tPAIRS\tCREATED")
		fmt.Fprintln(w, "--\t----\t--------\t------\t-----\t-------")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d,%d\t%d\t%s\n",
				p.ID, p.Name, p.Geometry, p.Offset.X, p.Offset.Y, p.Samples,
				p.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a calibration profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Profiles().Delete(args[0]); err != nil {
			return fmt.Errorf("delete profile %s: %w", args[0], err)
		}
		fmt.Printf("Deleted profile %s\n", args[0])
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesDeleteCmd)
	rootCmd.AddCommand(profilesCmd)
}
