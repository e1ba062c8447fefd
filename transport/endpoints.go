package transport

import (
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/types"
	"github.com/DeveloperOl/lespas/util"
)

// Endpoints builds the server URLs for a media item.
type Endpoints struct {
	BaseUrl         string
	DavEndpoint     string
	Username        string
	PreviewEndpoint string
}

func EndpointsFromConfig(c config.LayerConfig) Endpoints {
	return Endpoints{
		BaseUrl:         c.Server.BaseUrl,
		DavEndpoint:     c.Server.DavEndpoint,
		Username:        c.Server.Username,
		PreviewEndpoint: c.Previews.Endpoint,
	}
}

// ObjectUrl is the DAV url of the full media object.
func (e Endpoints) ObjectUrl(ref types.MediaReference) string {
	return util.MakeUrl(e.BaseUrl, e.DavEndpoint, util.EscapePath(e.Username), util.EscapePath(ref.ObjectPath()))
}

// PreviewUrl is the server side thumbnail for the item's file id.
func (e Endpoints) PreviewUrl(ref types.MediaReference) string {
	return util.MakeUrl(e.BaseUrl, e.PreviewEndpoint) + ref.Id
}
