package tree

// GroupID returns the id of the named standard group node beneath parent.
func GroupID(parent ID, group string) ID {
	return parent + "/" + ID(group)
}
