//go:build !unix

package search

func SetNiceness(int) error {
	return nil
}
