package resource

// Namespace is the document namespace of the generic resource schema,
// home of the link element shared by all resource documents.
const Namespace = "http://schemata.everest.org/resource"

// RelSelf is the relation of the link every member carries to itself.
const RelSelf = "self"

// Link is a typed reference to another resource. Rel carries the
// relation URI fixed for the target's resource type (or "self"), HRef
// the target's path within the service.
type Link struct {
	Rel  string
	HRef string
}

// CollectionRelation derives the relation URI of a collection resource
// from the relation of its member type.
func CollectionRelation(memberRelation string) string {
	return memberRelation + "-collection"
}
