package directory

// principalCache builds the merged id→principal mapping across users, groups
// and service principals. Type tags were assigned when the records were
// shaped, so lookups never re-derive them.
func principalCache(collections ...[]Principal) map[string]Principal {
	size := 0
	for _, c := range collections {
		size += len(c)
	}
	cache := make(map[string]Principal, size)
	for _, c := range collections {
		for _, p := range c {
			cache[p.ID] = p
		}
	}
	return cache
}

// roleCache builds the id→role definition mapping.
func roleCache(roles []RoleDefinition) map[string]RoleDefinition {
	cache := make(map[string]RoleDefinition, len(roles))
	for _, r := range roles {
		cache[r.ID] = r
	}
	return cache
}

// resolvePrincipal looks up an id in the cache, substituting the
// "Unknown (<id>)" placeholder on a miss.
func resolvePrincipal(cache map[string]Principal, id string) Principal {
	if p, ok := cache[id]; ok {
		return p
	}
	return unknownPrincipal(id)
}
