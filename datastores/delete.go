package datastores

import (
	"os"
)

// Remove deletes filePath. A file that is already gone is not an error.
func Remove(filePath string) error {
	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
