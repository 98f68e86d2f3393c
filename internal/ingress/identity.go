package ingress

import (
	"regexp"
	"strings"

	"github.com/plexsphere/splicefabric/internal/fabricerr"
)

// identityFieldPattern matches the alphanumeric-only charset required of
// the IMEI and FCM_ID fields.
var identityFieldPattern = regexp.MustCompile(`^[A-Za-z0-9]*$`)

// Identity is the parsed dial-in identity frame.
type Identity struct {
	IMEI       string
	FCMID      string
	AppVersion string
}

// parseIdentityFrame parses the comma-separated "imei,fcm_id[,app_version]"
// payload read from an agent's dial-in frame. It rejects frames whose imei
// or fcm_id fields contain characters outside [A-Za-z0-9].
func parseIdentityFrame(raw []byte) (Identity, error) {
	text := strings.TrimRight(string(raw), "\x00")
	parts := strings.SplitN(text, ",", 3)
	if len(parts) < 2 {
		return Identity{}, fabricerr.Wrap(fabricerr.KindIdentityFrameInvalid, "expected at least imei,fcm_id", nil)
	}

	imei := strings.TrimSpace(parts[0])
	fcmID := strings.TrimSpace(parts[1])
	if !identityFieldPattern.MatchString(imei) || imei == "" {
		return Identity{}, fabricerr.New(fabricerr.KindIdentityFrameInvalid, "imei failed charset check")
	}
	if !identityFieldPattern.MatchString(fcmID) || fcmID == "" {
		return Identity{}, fabricerr.New(fabricerr.KindIdentityFrameInvalid, "fcm_id failed charset check")
	}

	appVersion := NotAvailable
	if len(parts) == 3 {
		v := strings.TrimSpace(parts[2])
		if v != "" {
			appVersion = v
		}
	}

	return Identity{IMEI: imei, FCMID: fcmID, AppVersion: appVersion}, nil
}
