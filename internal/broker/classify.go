package broker

import (
	"errors"
	"net"
	"strings"

	"controlling_incubator/internal/models"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

// Classify maps a connect failure onto a ConnectionError kind. CONNACK
// refusals arrive as packets sentinels; network failures are only
// recognisable by type or message.
func Classify(err error) *models.ConnectionError {
	if err == nil {
		return nil
	}
	var ce *models.ConnectionError
	if errors.As(err, &ce) {
		return ce
	}

	kind := models.KindGeneric
	var netErr net.Error
	switch {
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword):
		kind = models.KindBadCredentials
	case errors.Is(err, packets.ErrorRefusedNotAuthorised):
		kind = models.KindNotAuthorized
	case errors.Is(err, packets.ErrorRefusedBadProtocolVersion):
		kind = models.KindProtocolMismatch
	case errors.Is(err, packets.ErrorRefusedServerUnavailable),
		errors.Is(err, ErrNotConnected),
		errors.As(err, &netErr),
		strings.HasPrefix(err.Error(), packets.ErrorNetworkError.Error()):
		kind = models.KindServerUnavailable
	}
	return &models.ConnectionError{Kind: kind, Err: err}
}
