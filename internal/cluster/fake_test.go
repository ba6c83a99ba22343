package cluster

import (
	"context"
	"sync"
)

type fakeObject struct {
	version string
	tags    Tags
}

type fakeCloud struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	calls   []string
	fail    map[string]error
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{objects: map[string]fakeObject{}, fail: map[string]error{}}
}

func (c *fakeCloud) call(op, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op+" "+address)
	return c.fail[op+" "+address]
}

func (c *fakeCloud) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeResource struct {
	cloud    *fakeCloud
	typ      string
	name     string
	target   string
	deployed string
	live     Tags
}

func (c *fakeCloud) resource(typ, name, target string) *fakeResource {
	return &fakeResource{cloud: c, typ: typ, name: name, target: target}
}

func (r *fakeResource) ResourceType() string { return r.typ }
func (r *fakeResource) ResourceName() string { return r.name }
func (r *fakeResource) Tags() Tags           { return GetResourceVersionTag(r.target) }
func (r *fakeResource) TargetVersion() string {
	return r.target
}
func (r *fakeResource) DeployedVersion() string { return r.deployed }
func (r *fakeResource) LiveTags() Tags          { return r.live }
func (r *fakeResource) ResourceID() string      { return "id-" + r.name }

func (r *fakeResource) Fetch(ctx context.Context) error {
	if err := r.cloud.call("fetch", Address(r)); err != nil {
		return err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	object, ok := r.cloud.objects[Address(r)]
	if !ok {
		r.deployed, r.live = "", nil
		return nil
	}
	r.deployed, r.live = object.version, object.tags.Clone()
	return nil
}

func (r *fakeResource) Create(ctx context.Context, tags Tags) error {
	if err := r.cloud.call("create", Address(r)); err != nil {
		return err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	r.cloud.objects[Address(r)] = fakeObject{version: r.target, tags: tags.Clone()}
	return nil
}

func (r *fakeResource) Update(ctx context.Context, tags Tags) error {
	if err := r.cloud.call("update", Address(r)); err != nil {
		return err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	r.cloud.objects[Address(r)] = fakeObject{version: r.target, tags: tags.Clone()}
	return nil
}

func (r *fakeResource) Delete(ctx context.Context) error {
	if err := r.cloud.call("delete", Address(r)); err != nil {
		return err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	delete(r.cloud.objects, Address(r))
	return nil
}

type recorded struct {
	mu      sync.Mutex
	actions map[string]Action
}

func (r *recorded) Record(res Resource, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actions == nil {
		r.actions = map[string]Action{}
	}
	r.actions[Address(res)] = action
}

func testSettings() Settings {
	return Settings{
		ClusterName: "demo",
		DefaultTags: NamedTags{NameTagKey: "demo"},
		OwnedBy:     OwnerProvisioner,
	}
}
