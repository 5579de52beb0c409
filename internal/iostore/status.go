package iostore

import (
	"fmt"

	"github.com/huangsam/casetrend/schema"
)

// PrintStoreStatus prints snapshot store status information.
func PrintStoreStatus(status schema.StoreStatus) {
	fmt.Printf("Store Backend: %s\n", status.Backend)
	fmt.Printf("Location: %s\n", status.Location)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Snapshots: %d\n", status.TotalSnapshots)
	fmt.Printf("Total Region Rows: %d\n", status.TotalRows)
	if status.TotalSnapshots > 0 {
		fmt.Printf("Newest Snapshot: %s\n", status.NewestSnapshot.Format("2006-01-02 15:04"))
		fmt.Printf("Oldest Snapshot: %s\n", status.OldestSnapshot.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Size: %d bytes\n", status.SizeBytes)
}
