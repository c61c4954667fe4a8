package defender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"entrareport/internal/common/security"
	"entrareport/internal/graph"
)

// Sensor is one Defender for Identity sensor, read from the beta API.
type Sensor struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	SensorType       string `json:"sensorType"`
	Version          string `json:"version"`
	HealthStatus     string `json:"healthStatus"`
	DeploymentStatus string `json:"deploymentStatus"`
	DomainName       string `json:"domainName"`
	OpenHealthIssues int    `json:"openHealthIssuesCount"`
	CreatedDateTime  string `json:"createdDateTime"`
	LastSeenDateTime string `json:"lastSeenDateTime"`
}

// DeploymentInfo carries what a new sensor installation needs.
type DeploymentInfo struct {
	AccessKey  string `json:"accessKey"`
	PackageURI string `json:"packageUri"`
}

// restLister is the slice of graph.RESTClient the sensor reader needs.
type restLister interface {
	GetJSON(ctx context.Context, url string, out any) error
	ListAll(ctx context.Context, url string) ([]json.RawMessage, error)
}

// Sensors lists Defender for Identity sensors. The resource only exists on
// the beta surface, so it goes through the raw REST client.
func Sensors(ctx context.Context, rest restLister, log *slog.Logger) ([]Sensor, error) {
	if log == nil {
		log = slog.Default()
	}

	items, err := rest.ListAll(ctx, graph.EndpointBeta+"/security/identities/sensors")
	if err != nil {
		return nil, fmt.Errorf("listing identity sensors: %w", err)
	}

	out := make([]Sensor, 0, len(items))
	for _, raw := range items {
		var s Sensor
		if err := json.Unmarshal(raw, &s); err != nil {
			log.Warn("skipping undecodable sensor record", "error", err)
			continue
		}
		out = append(out, s)
	}
	log.Debug("identity sensors fetched", "count", len(out))
	return out, nil
}

// Deployment fetches the sensor deployment access key and package URI. The
// access key is a secret and is masked whenever it is logged.
func Deployment(ctx context.Context, rest restLister, log *slog.Logger) (*DeploymentInfo, error) {
	if log == nil {
		log = slog.Default()
	}

	var key struct {
		Value string `json:"value"`
	}
	if err := rest.GetJSON(ctx, graph.EndpointBeta+"/security/identities/sensors/deploymentAccessKey", &key); err != nil {
		return nil, fmt.Errorf("fetching deployment access key: %w", err)
	}

	var pkg struct {
		Value string `json:"value"`
	}
	if err := rest.GetJSON(ctx, graph.EndpointBeta+"/security/identities/sensors/deploymentPackageUri", &pkg); err != nil {
		return nil, fmt.Errorf("fetching deployment package uri: %w", err)
	}

	log.Info("sensor deployment info fetched",
		"accessKey", security.MaskSecret(key.Value),
		"packageUri", pkg.Value)
	return &DeploymentInfo{AccessKey: key.Value, PackageURI: pkg.Value}, nil
}
