package errcode

import "syscall"

// errnoTable is the errno -> Code mapping, transcribed from the reference
// implementation's exhaustive errno switch (original_source/src/error.h).
// EAGAIN and EWOULDBLOCK alias to the same Code, as do EOPNOTSUPP/ENOTSUP
// on Linux.
var errnoTable = map[syscall.Errno]Code{
	syscall.EAFNOSUPPORT:   AddressFamilyNotSupported,
	syscall.EADDRINUSE:     AddressInUse,
	syscall.EADDRNOTAVAIL:  AddressNotAvailable,
	syscall.EISCONN:        AlreadyConnected,
	syscall.E2BIG:          ArgumentListTooLong,
	syscall.EDOM:           ArgumentOutOfDomain,
	syscall.EFAULT:         BadAddress,
	syscall.EBADF:          BadFileDescriptor,
	syscall.EBADMSG:        BadMessage,
	syscall.EPIPE:          BrokenPipe,
	syscall.ECONNABORTED:   ConnectionAborted,
	syscall.EALREADY:       ConnectionAlreadyInProgress,
	syscall.ECONNREFUSED:   ConnectionRefused,
	syscall.ECONNRESET:     ConnectionReset,
	syscall.EXDEV:          CrossDeviceLink,
	syscall.EDESTADDRREQ:   DestinationAddressRequired,
	syscall.EBUSY:          DeviceOrResourceBusy,
	syscall.ENOTEMPTY:      DirectoryNotEmpty,
	syscall.ENOEXEC:        ExecutableFormatError,
	syscall.EEXIST:         FileExists,
	syscall.EFBIG:          FileTooLarge,
	syscall.ENAMETOOLONG:   FilenameTooLong,
	syscall.ENOSYS:         FunctionNotSupported,
	syscall.EHOSTUNREACH:   HostUnreachable,
	syscall.EIDRM:          IdentifierRemoved,
	syscall.EILSEQ:         IllegalByteSequence,
	syscall.ENOTTY:         InappropriateIOControlOperation,
	syscall.EINTR:          Interrupted,
	syscall.EINVAL:         InvalidArgument,
	syscall.ESPIPE:         InvalidSeek,
	syscall.EIO:            IOError,
	syscall.EISDIR:         IsADirectory,
	syscall.EMSGSIZE:       MessageSize,
	syscall.ENETDOWN:       NetworkDown,
	syscall.ENETRESET:      NetworkReset,
	syscall.ENETUNREACH:    NetworkUnreachable,
	syscall.ENOBUFS:        NoBufferSpace,
	syscall.ECHILD:         NoChildProcess,
	syscall.ENOLINK:        NoLink,
	syscall.ENOLCK:         NoLockAvailable,
	syscall.ENOMSG:         NoMessage,
	syscall.ENOPROTOOPT:    NoProtocolOption,
	syscall.ENOSPC:         NoSpaceOnDevice,
	syscall.ENXIO:          NoSuchDeviceOrAddress,
	syscall.ENODEV:         NoSuchDevice,
	syscall.ENOENT:         NoSuchFileOrDirectory,
	syscall.ESRCH:          NoSuchProcess,
	syscall.ENOTDIR:        NotADirectory,
	syscall.ENOTSOCK:       NotASocket,
	syscall.ENOTCONN:       NotConnected,
	syscall.ENOMEM:         NotEnoughMemory,
	syscall.ENOTSUP:        OperationNotSupported, // == EOPNOTSUPP on linux
	syscall.ECANCELED:      OperationCanceled,
	syscall.EINPROGRESS:    InProgress,
	syscall.EPERM:          OperationNotPermitted,
	syscall.EOWNERDEAD:     OwnerDead,
	syscall.EACCES:         PermissionDenied,
	syscall.EPROTO:         ProtocolError,
	syscall.EPROTONOSUPPORT: ProtocolNotSupported,
	syscall.EROFS:          ReadOnlyFileSystem,
	syscall.EDEADLK:        ResourceDeadlockWouldOccur,
	syscall.EAGAIN:         WouldBlock, // == EWOULDBLOCK on linux
	syscall.ERANGE:         ResultOutOfRange,
	syscall.ENOTRECOVERABLE: StateNotRecoverable,
	syscall.ETXTBSY:        TextFileBusy,
	syscall.ETIMEDOUT:      TimedOut,
	syscall.ENFILE:         TooManyFilesOpenInSystem,
	syscall.EMFILE:         TooManyFilesOpen,
	syscall.EMLINK:         TooManyLinks,
	syscall.ELOOP:          TooManySymbolicLinkLevels,
	syscall.EOVERFLOW:      ValueTooLarge,
	syscall.EPROTOTYPE:     WrongProtocolType,
}

// IsWouldBlock reports whether errno is EAGAIN/EWOULDBLOCK.
func IsWouldBlock(errno syscall.Errno) bool {
	return errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK
}

// IsInProgress reports whether errno is EINPROGRESS.
func IsInProgress(errno syscall.Errno) bool {
	return errno == syscall.EINPROGRESS
}
