// pkg/topology/reconcile.go

package topology

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/serverconfig"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Outcome of one reconciliation attempt.
type Outcome int

const (
	// NotReady means some desired nodes have not joined yet. Nothing was changed.
	NotReady Outcome = iota
	// Applied means the topology was imported, and applied when requested.
	Applied
)

func (o Outcome) String() string {
	if o == Applied {
		return "applied"
	}
	return "not ready"
}

// AdminClient is the subset of the administration tool reconciliation needs.
type AdminClient interface {
	ListNodes(rc *hestia_io.RuntimeContext) ([]string, error)
	ImportTopology(rc *hestia_io.RuntimeContext, configFile string) error
	ApplyPendingChanges(rc *hestia_io.RuntimeContext) error
	RemoveNode(rc *hestia_io.RuntimeContext, node string) error
	Restart(rc *hestia_io.RuntimeContext) error
}

// Reconcile converges the cluster toward desired. The topology half of
// configFile is imported only when every desired node has joined. With
// applyAndRestart the import is applied, nodes outside desired are removed
// one by one, and the cluster is restarted.
func Reconcile(rc *hestia_io.RuntimeContext, client AdminClient, configFile string, desired sets.Set[string], applyAndRestart bool) (Outcome, error) {
	logger := otelzap.Ctx(rc.Ctx)

	reported, err := client.ListNodes(rc)
	if err != nil {
		return NotReady, err
	}
	actual := sets.New(reported...)

	if !actual.IsSuperset(desired) {
		logger.Warn("terminal prompt: Not all nodes in desired topology are ready. "+
			"Please make sure all worker nodes are installed properly then rerun hestia with the updateTopology command.",
			zap.String("expected", strings.Join(sets.List(desired), ", ")),
			zap.String("actual", strings.Join(sets.List(actual), ", ")),
			zap.String("missing", strings.Join(sets.List(desired.Difference(actual)), ", ")))
		return NotReady, nil
	}

	if err := client.ImportTopology(rc, configFile); err != nil {
		return NotReady, err
	}
	logger.Info("terminal prompt: Topology applied")

	if !applyAndRestart {
		return Applied, nil
	}

	if err := client.ApplyPendingChanges(rc); err != nil {
		return NotReady, err
	}
	logger.Info("terminal prompt: Topology change has been applied.")

	for _, node := range sets.List(actual.Difference(desired)) {
		logger.Info("terminal prompt: Removing extra node: " + node)
		if err := client.RemoveNode(rc, node); err != nil {
			return NotReady, err
		}
		logger.Info("terminal prompt: Node " + node + " has been removed. " +
			"Please uninstall Tableau server from the node for complete clean up.")
	}

	logger.Info("terminal prompt: Restarting server...")
	if err := client.Restart(rc); err != nil {
		return NotReady, err
	}
	logger.Info("terminal prompt: Server is running after restart.")
	return Applied, nil
}

// ReconcileFromConfig reads the desired topology from configFile on every
// call, since operators edit the file between runs, then reconciles.
func ReconcileFromConfig(rc *hestia_io.RuntimeContext, client AdminClient, configFile string, applyAndRestart bool) (Outcome, error) {
	cfg, err := serverconfig.Load(rc.Ctx, configFile)
	if err != nil {
		return NotReady, err
	}
	return Reconcile(rc, client, configFile, cfg.DesiredNodes(), applyAndRestart)
}
