// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags
package version

// Version is the release version
var Version = "0.1.0"

const (
	// Product names the daemon to the audio server and in logs
	Product = "ambient"
	// Manufacturer is reported alongside Product
	Manufacturer = "Resonate"
)

// AppName is the client name registered with the audio server
func AppName() string {
	return Product + "-" + Version
}
