// Package distro identifies the Linux distribution of the machine the
// harness runs on.
package distro

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// OSReleasePath is read by Detect.
var OSReleasePath = "/etc/os-release"

// Info is the distribution name and version from os-release.
type Info struct {
	Name    string
	Version string
}

// Detect reads OSReleasePath.
func Detect() (Info, error) {
	data, err := os.ReadFile(OSReleasePath)
	if err != nil {
		return Info{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't read "+OSReleasePath,
			"The core processing commands only support Linux hosts")
	}
	return ParseOSRelease(string(data)), nil
}

// ParseOSRelease extracts NAME and VERSION_ID from os-release text.
func ParseOSRelease(text string) Info {
	var info Info
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		val = strings.Trim(val, `"'`)
		switch key {
		case "NAME":
			info.Name = val
		case "VERSION_ID":
			info.Version = val
		}
	}
	return info
}

func (i Info) lowerName() string { return strings.ToLower(i.Name) }

// IsEL reports an Enterprise Linux rebuild.
func (i Info) IsEL() bool {
	name := i.lowerName()
	for _, el := range []string{"almalinux", "rocky", "centos", "red hat", "rhel"} {
		if strings.Contains(name, el) {
			return true
		}
	}
	return false
}

// IsEL7 reports EL major version 7.
func (i Info) IsEL7() bool { return i.IsEL() && i.MajorVersion() == 7 }

// IsSUSE reports openSUSE or SLES.
func (i Info) IsSUSE() bool {
	name := i.lowerName()
	return strings.Contains(name, "suse") || strings.Contains(name, "sles")
}

// MajorVersion returns the leading number of Version, or 0.
func (i Info) MajorVersion() int {
	major, _, _ := strings.Cut(i.Version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	return n
}

func (i Info) String() string {
	if i.Version == "" {
		return i.Name
	}
	return i.Name + " " + i.Version
}
