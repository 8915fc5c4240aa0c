package sp

// Element names of the science-program vocabulary.
const (
	TagProgram     = "SpProg"
	TagMSB         = "SpMSB"
	TagObs         = "SpObs"
	TagOR          = "SpOR"
	TagAND         = "SpAND"
	TagSurvey      = "SpSurveyContainer"
	TagTargetList  = "TargetList"
	TagTarget      = "Target"
	TagTelescope   = "SpTelescopeObsComp"
	TagSiteQuality = "SpSiteQualityObsComp"
	TagSchedConst  = "SpSchedConstObsComp"
	TagDRRecipe    = "SpDRRecipe"
	TagIterFolder  = "SpIterFolder"
	TagTitle       = "title"
	TagProjectID   = "projectID"
	TagTelescopeID = "telescope"

	PrefixInstrument = "SpInst"
	PrefixIterator   = "SpIter"
)

// Attribute names.
const (
	AttrID            = "id"
	AttrIDRef         = "idref"
	AttrRemaining     = "remaining"
	AttrChecksum      = "checksum"
	AttrSuspend       = "suspend"
	AttrObsnum        = "obsnum"
	AttrNumberOfItems = "numberOfItems"
	AttrMSB           = "msb"
	AttrStandard      = "standard"
	AttrPriority      = "priority"
)
