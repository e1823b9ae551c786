package proxmox

// GuestKind distinguishes QEMU virtual machines from LXC containers.
type GuestKind string

const (
	// GuestKindVM is a QEMU virtual machine.
	GuestKindVM GuestKind = "qemu"

	// GuestKindContainer is an LXC container.
	GuestKindContainer GuestKind = "lxc"
)

// resourceType returns the type value the cluster resources endpoint uses
// for this guest kind.
func (k GuestKind) resourceType() string {
	if k == GuestKindContainer {
		return "lxc"
	}
	return "vm"
}

// UPID identifies an asynchronous Proxmox task
// (e.g. "UPID:pve1:0001A2B3:...").
type UPID string

// Version describes the API version of a cluster endpoint.
type Version struct {
	Version string `json:"version"`
	Release string `json:"release"`
	RepoID  string `json:"repoid"`
}

// Node is one physical node of a Proxmox cluster as reported by /nodes.
type Node struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxCPU int     `json:"maxcpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Disk   int64   `json:"disk"`
	MaxDsk int64   `json:"maxdisk"`
	Uptime int64   `json:"uptime"`
}

// Guest is a VM or container entry from the cluster resources endpoint.
type Guest struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Node     string  `json:"node"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	CPU      float64 `json:"cpu"`
	MaxCPU   int     `json:"maxcpu"`
	Mem      int64   `json:"mem"`
	MaxMem   int64   `json:"maxmem"`
	Uptime   int64   `json:"uptime"`
	Template int     `json:"template"`
}

// GuestFilter narrows ListGuests output. Zero values mean no filtering.
type GuestFilter struct {
	// Node restricts results to guests placed on this node.
	Node string
	// Status restricts results to guests in this state (running, stopped).
	Status string
	// Search is a case-insensitive substring match against guest names.
	Search string
}

// GuestSelector identifies a single guest for ResolveGuest. Exactly one of
// VMID or Name must be set; Node optionally disambiguates name matches.
type GuestSelector struct {
	VMID int
	Name string
	Node string
}

// Storage is one storage pool definition from /storage.
type Storage struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Nodes   string `json:"nodes,omitempty"`
	Shared  int    `json:"shared,omitempty"`
}

// Task status values reported by the tasks endpoint.
const (
	TaskStatusRunning = "running"
	TaskStatusStopped = "stopped"

	// TaskExitOK is the exitstatus value of a successfully finished task.
	TaskExitOK = "OK"
)

// TaskStatus describes the state of an asynchronous task.
type TaskStatus struct {
	UPID       UPID   `json:"upid"`
	Node       string `json:"node"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus,omitempty"`
	StartTime  int64  `json:"starttime"`
}

// Finished reports whether the task has left the running state.
func (t *TaskStatus) Finished() bool {
	return t.Status != TaskStatusRunning
}

// Succeeded reports whether a finished task exited cleanly.
func (t *TaskStatus) Succeeded() bool {
	return t.Finished() && t.ExitStatus == TaskExitOK
}
