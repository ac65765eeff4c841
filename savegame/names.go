package savegame

// chunkNames maps well-known chunk ids to a human-readable description.
var chunkNames = map[ChunkID]string{
	MustChunkID("AIPL"): "AI companies",
	MustChunkID("ANIT"): "animated tiles",
	MustChunkID("APID"): "airport ids",
	MustChunkID("ATID"): "airport tile ids",
	MustChunkID("BKOR"): "backup orders",
	MustChunkID("CAPA"): "cargo packets",
	MustChunkID("CAPR"): "cargo payment rates",
	MustChunkID("CAPY"): "cargo payments",
	MustChunkID("CHTS"): "cheats",
	MustChunkID("CITY"): "towns",
	MustChunkID("CMDL"): "cargo monitors (delivery)",
	MustChunkID("CMPU"): "cargo monitors (pickup)",
	MustChunkID("DATE"): "date",
	MustChunkID("DEPT"): "depots",
	MustChunkID("ECMY"): "economy",
	MustChunkID("EIDS"): "engine ids",
	MustChunkID("ENGN"): "engines",
	MustChunkID("ERNW"): "engine renews",
	MustChunkID("GLOG"): "game log",
	MustChunkID("GOAL"): "goals",
	MustChunkID("GRPS"): "groups",
	MustChunkID("GSDT"): "game script data",
	MustChunkID("GSTR"): "game script strings",
	MustChunkID("HIDS"): "house ids",
	MustChunkID("IBLD"): "industry builder",
	MustChunkID("IIDS"): "industry ids",
	MustChunkID("INDY"): "industries",
	MustChunkID("ITBL"): "industry type build data",
	MustChunkID("LEAE"): "league table elements",
	MustChunkID("LEAT"): "league tables",
	MustChunkID("LGRJ"): "link graph jobs",
	MustChunkID("LGRP"): "link graphs",
	MustChunkID("LGRS"): "link graph schedule",
	MustChunkID("MAPS"): "map dimensions",
	MustChunkID("NGRF"): "NewGRF configuration",
	MustChunkID("OBID"): "object ids",
	MustChunkID("OBJS"): "objects",
	MustChunkID("ORDL"): "order lists",
	MustChunkID("ORDR"): "orders",
	MustChunkID("PATS"): "settings",
	MustChunkID("PLYR"): "companies",
	MustChunkID("RAIL"): "rail type labels",
	MustChunkID("ROAD"): "road stops",
	MustChunkID("ROTT"): "road type labels",
	MustChunkID("SIGN"): "signs",
	MustChunkID("STNN"): "stations",
	MustChunkID("STPA"): "story pages",
	MustChunkID("STPE"): "story page elements",
	MustChunkID("SUBS"): "subsidies",
	MustChunkID("VEHS"): "vehicles",
	MustChunkID("VIEW"): "viewport",
}

// ChunkName returns a description of a well-known chunk. Unknown ids
// report false; they decode like any other chunk.
func ChunkName(id ChunkID) (string, bool) {
	name, ok := chunkNames[id]
	return name, ok
}

// chunkLabel is ChunkName with a fallback for log lines.
func chunkLabel(id ChunkID) string {
	if name, ok := chunkNames[id]; ok {
		return name
	}
	return "unknown"
}
