package domain

import "errors"

var (
	ErrPodNotFound        = errors.New("pod not found")
	ErrAlreadyRunning     = errors.New("pod is already running or starting")
	ErrNoContainer        = errors.New("pod has no container")
	ErrContainerNotFound  = errors.New("container not found")
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	ErrBuilderNotFound    = errors.New("devcontainer CLI not found")
	ErrBuildFailed        = errors.New("devcontainer up failed")
	ErrBuildTimeout       = errors.New("devcontainer up timed out")
	ErrBuildCancelled     = errors.New("build cancelled")
	ErrInvalidPort        = errors.New("invalid port")
)
