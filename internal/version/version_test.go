package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.2.0",
		GitCommit: "abc1234",
		BuildDate: "2024-05-01",
		GoVersion: "go1.23.4",
		Platform:  "linux/arm64",
	}
	assert.Equal(t, "ipwatch v1.2.0 (commit abc1234, built 2024-05-01, go1.23.4 linux/arm64)", info.String())
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "ipwatch/"+Version, UserAgent())
}
