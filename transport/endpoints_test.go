package transport

import (
	"testing"

	"github.com/DeveloperOl/lespas/types"
	"github.com/stretchr/testify/assert"
)

func TestEndpoints(t *testing.T) {
	e := Endpoints{
		BaseUrl:         "https://cloud.example.org/",
		DavEndpoint:     "/remote.php/dav/files/",
		Username:        "alice",
		PreviewEndpoint: "/index.php/core/preview?x=1024&y=1024&a=true&fileId=",
	}
	ref := types.MediaReference{Id: "1234", Name: "IMG 1.jpg", RemotePath: "lespas/Summer/"}

	assert.Equal(t, "https://cloud.example.org/remote.php/dav/files/alice/lespas/Summer/IMG%201.jpg", e.ObjectUrl(ref))
	assert.Equal(t, "https://cloud.example.org/index.php/core/preview?x=1024&y=1024&a=true&fileId=1234", e.PreviewUrl(ref))
}
