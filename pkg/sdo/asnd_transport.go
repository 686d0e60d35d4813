package sdo

import (
	"fmt"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/plframe"
)

// AsndClientKey builds the ClientKey a Server uses to track one ASnd
// SDO client, keyed by NodeId (spec §4.3.4: "Addressing is by NodeId").
func AsndClientKey(node powerlink.NodeId) ClientKey {
	return ClientKey(fmt.Sprintf("asnd:%d", node))
}

// HandleAsndSDO processes one inbound ASnd frame with ServiceId=SDO and
// returns the ASnd frame to send back to the requester, or nil if the
// frame is not an SDO ASnd or is too short to hold a sequence header. A
// bare handshake step still gets a (header-only) response.
func (s *Server) HandleAsndSDO(requester powerlink.NodeId, self powerlink.NodeId, frame plframe.ASnd) *plframe.ASnd {
	if frame.ServiceId != plframe.ASndSDO {
		return nil
	}
	resp := s.Process(AsndClientKey(requester), frame.Data)
	if resp == nil {
		return nil
	}
	return &plframe.ASnd{Destination: requester, Source: self, ServiceId: plframe.ASndSDO, Data: resp}
}
