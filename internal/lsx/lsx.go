// Package lsx finds a mod's meta.lsx and migrates its version attribute.
//
// A meta.lsx is an XML document of nested <node id="..."> elements holding
// <attribute id="..." type="..." value="..."/> elements. Older files carry
// the mod version as a 32-bit "Version" attribute; the game now expects a
// packed 64-bit "Version64". [Updater.UpgradeVersionField] rewrites every
// "Version" attribute in place and then reads back the Version64 of the
// ModuleInfo node.
package lsx

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"mmt/internal/fs"
	"mmt/internal/version"
)

// Defaults for [Options].
const (
	DefaultModsDir  = "Mods"
	DefaultMetaFile = "meta.lsx"
)

// Document structure.
const (
	attributeTag    = "attribute"
	attrID          = "id"
	attrType        = "type"
	attrValue       = "value"
	legacyID        = "Version"
	upgradedID      = "Version64"
	upgradedType    = "int64"
	moduleInfoID    = "ModuleInfo"
	legacyAttrsPath = "//" + attributeTag + "[@" + attrID + "='" + legacyID + "']"
	upgradedPath    = "//" + attributeTag + "[@" + attrID + "='" + upgradedID + "']"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Errors returned by the updater. Filesystem errors are wrapped as-is.
var (
	ErrMalformedDocument = errors.New("malformed lsx document")
	ErrInvalidVersion64  = errors.New("invalid Version64 value")
)

// Options configures an [Updater].
type Options struct {
	// ModsDir is the folder inside the workspace holding one directory per mod.
	ModsDir string
	// MetaFile is the exact file name looked up in the mod directory.
	MetaFile string
	Logger   *slog.Logger
}

// Updater locates and upgrades meta.lsx files. It keeps no state between
// calls; each call is keyed by the path it is given.
type Updater struct {
	fs       fs.FS
	modsDir  string
	metaFile string
	log      *slog.Logger
}

// New returns an Updater on fsys. Empty options take their defaults.
func New(fsys fs.FS, opts Options) *Updater {
	if opts.ModsDir == "" {
		opts.ModsDir = DefaultModsDir
	}

	if opts.MetaFile == "" {
		opts.MetaFile = DefaultMetaFile
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Updater{
		fs:       fsys,
		modsDir:  opts.ModsDir,
		metaFile: opts.MetaFile,
		log:      opts.Logger,
	}
}

// Result is the outcome of an upgrade or lookup.
type Result struct {
	// Path is the meta file that was processed. Empty when none was found.
	Path string
	// Rewritten counts the "Version" attributes converted by this call.
	Rewritten int
	// Version is the ModuleInfo Version64 value. Only meaningful if Found.
	Version uint64
	// Found is false when no meta file exists or when the ModuleInfo
	// Version64 is missing or ambiguous.
	Found bool
}

// LocateMetaFile returns the meta file of the first mod directory under the
// workspace's mods folder. ok is false, with a nil error, when the mods
// folder is missing, holds no directories, or the first one has no meta file.
func (u *Updater) LocateMetaFile(workDir string) (string, bool, error) {
	modsPath := filepath.Join(workDir, u.modsDir)

	entries, err := u.fs.ReadDir(modsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			u.log.Debug("mods folder missing", "path", modsPath)

			return "", false, nil
		}

		return "", false, fmt.Errorf("reading mods folder: %w", err)
	}

	var modDir string

	for _, entry := range entries {
		if entry.IsDir() {
			modDir = filepath.Join(modsPath, entry.Name())

			break
		}
	}

	if modDir == "" {
		u.log.Debug("mods folder has no mod directories", "path", modsPath)

		return "", false, nil
	}

	metaPath, ok, err := u.findMetaFile(modDir)
	if err != nil || !ok {
		return "", false, err
	}

	info, err := u.fs.Stat(metaPath)
	if err != nil {
		return "", false, fmt.Errorf("checking meta file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return "", false, nil
	}

	return metaPath, true, nil
}

// findMetaFile lists modDir and matches the meta file name exactly, so a
// case-insensitive filesystem does not turn "Meta.lsx" into a hit.
func (u *Updater) findMetaFile(modDir string) (string, bool, error) {
	entries, err := u.fs.ReadDir(modDir)
	if err != nil {
		return "", false, fmt.Errorf("reading mod folder: %w", err)
	}

	for _, entry := range entries {
		if entry.Name() == u.metaFile {
			return filepath.Join(modDir, entry.Name()), true, nil
		}
	}

	u.log.Debug("meta file missing", "dir", modDir, "name", u.metaFile)

	return "", false, nil
}

// UpgradeVersionField rewrites every "Version" attribute in the document at
// path to a "Version64" of type int64, saves the document (always, even if
// nothing changed) and returns the ModuleInfo Version64.
//
// A legacy value that is not a 32-bit integer becomes
// [version.DefaultVersion]. The file is locked for the whole
// read-modify-write.
func (u *Updater) UpgradeVersionField(path string) (Result, error) {
	lock, err := u.fs.Lock(path)
	if err != nil {
		return Result{}, fmt.Errorf("locking %s: %w", path, err)
	}

	defer func() { _ = lock.Close() }()

	content, err := u.fs.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	body, hasBOM := bytes.CutPrefix(content, utf8BOM)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return Result{}, fmt.Errorf("%w %s: %w", ErrMalformedDocument, path, err)
	}

	if doc.Root() == nil {
		return Result{}, fmt.Errorf("%w %s: no root element", ErrMalformedDocument, path)
	}

	rewritten := upgradeAttributes(doc)

	out, err := doc.WriteToBytes()
	if err != nil {
		return Result{}, fmt.Errorf("encoding %s: %w", path, err)
	}

	if hasBOM {
		out = append(append([]byte{}, utf8BOM...), out...)
	}

	if err := u.fs.WriteFileAtomic(path, bytes.NewReader(out)); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", path, err)
	}

	u.log.Debug("meta file saved", "path", path, "rewritten", rewritten)

	v, found, err := moduleVersion(doc)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	return Result{Path: path, Rewritten: rewritten, Version: v, Found: found}, nil
}

// Lookup locates the workspace's meta file and upgrades it. The upgrade is
// skipped entirely when no meta file is found.
func (u *Updater) Lookup(workDir string) (Result, error) {
	path, ok, err := u.LocateMetaFile(workDir)
	if err != nil {
		return Result{}, err
	}

	if !ok {
		return Result{}, nil
	}

	return u.UpgradeVersionField(path)
}

func upgradeAttributes(doc *etree.Document) int {
	attrs := doc.FindElements(legacyAttrsPath)

	for _, attr := range attrs {
		packed := version.ParseLegacyText(attr.SelectAttrValue(attrValue, ""))

		attr.CreateAttr(attrID, upgradedID)
		attr.CreateAttr(attrType, upgradedType)
		attr.CreateAttr(attrValue, strconv.FormatUint(packed, 10))
	}

	return len(attrs)
}

// moduleVersion returns the value of the single Version64 attribute whose
// parent is the ModuleInfo node. Zero or several candidates is a miss.
func moduleVersion(doc *etree.Document) (uint64, bool, error) {
	var match *etree.Element

	for _, attr := range doc.FindElements(upgradedPath) {
		parent := attr.Parent()
		if parent == nil || parent.SelectAttrValue(attrID, "") != moduleInfoID {
			continue
		}

		if match != nil {
			return 0, false, nil
		}

		match = attr
	}

	if match == nil {
		return 0, false, nil
	}

	raw := match.SelectAttrValue(attrValue, "")

	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidVersion64, raw)
	}

	return v, true, nil
}
