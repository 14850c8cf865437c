package openshift

import "context"

const annotationDeploymentPhase = "openshift.io/deployment.phase"

// Deployment phases reported by the deployer
const (
	PhaseNew       = "New"
	PhasePending   = "Pending"
	PhaseRunning   = "Running"
	PhaseComplete  = "Complete"
	PhaseCompleted = "Completed"
	PhaseFailed    = "Failed"
	PhaseCancelled = "Cancelled"
)

// ReplicationController is one deployment of a deployment config
type ReplicationController struct {
	*Object
}

// Phase is the deployer phase annotation, "" when absent
func (rc *ReplicationController) Phase() string {
	return rc.Metadata().Annotation(annotationDeploymentPhase)
}

// Version is the deployment config version this controller was created for
func (rc *ReplicationController) Version() int64 {
	return parseVersion(rc.Metadata().Annotation(annotationDeploymentVersion))
}

// DeploymentConfigName returns the owning deployment config, "" if none
func (rc *ReplicationController) DeploymentConfigName() string {
	return rc.Metadata().Annotation(annotationDeploymentConfigName)
}

func (rc *ReplicationController) Replicas() int64 {
	n, _ := rc.Int64("spec", "replicas")
	return n
}

func (rc *ReplicationController) ReadyReplicas() int64 {
	n, _ := rc.Int64("status", "readyReplicas")
	return n
}

// IsRunning evaluates the current payload without reloading
func (rc *ReplicationController) IsRunning() bool {
	phase := rc.Phase()
	return phase == PhaseRunning || phase == PhasePending
}

// IsCompleted accepts both spellings of the finished phase
func (rc *ReplicationController) IsCompleted() bool {
	phase := rc.Phase()
	return phase == PhaseComplete || phase == PhaseCompleted
}

// IsScaled reports whether the controller runs replicas pods. Scaling to
// zero only requires status.replicas to drop to 0.
func (rc *ReplicationController) IsScaled(replicas int64) bool {
	if replicas == 0 {
		current, _ := rc.Int64("status", "replicas")
		return current == 0
	}
	return rc.ReadyReplicas() == replicas
}

// Running reloads the controller and reports whether it is running or pending
func (rc *ReplicationController) Running(ctx context.Context) (bool, error) {
	if err := rc.Reload(ctx, true); err != nil {
		return false, err
	}
	return rc.IsRunning(), nil
}

func (rc *ReplicationController) Completed(ctx context.Context) (bool, error) {
	if err := rc.Reload(ctx, true); err != nil {
		return false, err
	}
	return rc.IsCompleted(), nil
}

// Scaled reloads the controller and evaluates IsScaled
func (rc *ReplicationController) Scaled(ctx context.Context, replicas int64) (bool, error) {
	if err := rc.Reload(ctx, false); err != nil {
		return false, err
	}
	return rc.IsScaled(replicas), nil
}
