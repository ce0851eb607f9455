package cmd

import (
	"parlsync/cmd/client/cmd/journal"
	"parlsync/cmd/client/cmd/record"
	"parlsync/cmd/client/cmd/sync"
)

func init() {
	rootCmd.AddCommand(record.RecordCmd)
	record.RecordCmd.AddCommand(record.GetCmd)
	record.RecordCmd.AddCommand(record.FindCmd)
	record.RecordCmd.AddCommand(record.CreateCmd)
	record.RecordCmd.AddCommand(record.UpdateCmd)
	record.RecordCmd.AddCommand(record.DeleteCmd)

	rootCmd.AddCommand(sync.SyncCmd)

	rootCmd.AddCommand(journal.JournalCmd)
	journal.JournalCmd.AddCommand(journal.ListCmd)
	journal.JournalCmd.AddCommand(journal.RollbackCmd)
}
